package align

import (
	"math"
	"path/filepath"
	"testing"

	"cadence/internal/testsupport"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func checkInvariants(t *testing.T, source string, words []Word) {
	t.Helper()
	if got, want := len(words), SourceTokenCount(source); got != want {
		t.Fatalf("word count = %d, want %d", got, want)
	}
	for i := 1; i < len(words); i++ {
		if words[i].Start < words[i-1].Start {
			t.Fatalf("start times decrease at %d: %v after %v", i, words[i].Start, words[i-1].Start)
		}
	}
	for i, w := range words {
		if w.End < w.Start {
			t.Fatalf("word %d has end %v before start %v", i, w.End, w.Start)
		}
	}
}

func TestWordsCleanMatch(t *testing.T) {
	source := "the quick brown fox"
	tokens := []Token{
		{Text: "the", Start: 0.0, End: 0.2},
		{Text: "quick", Start: 0.2, End: 0.5},
		{Text: "brown", Start: 0.5, End: 0.8},
		{Text: "fox", Start: 0.8, End: 1.1},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)
	for i, tok := range tokens {
		if !approxEqual(words[i].Start, tok.Start) || !approxEqual(words[i].End, tok.End) {
			t.Fatalf("word %d = [%v, %v], want [%v, %v]", i, words[i].Start, words[i].End, tok.Start, tok.End)
		}
	}
	if words[0].Text != "the" || words[3].Text != "fox" {
		t.Fatalf("source spelling not preserved: %+v", words)
	}
}

func TestWordsInteriorDeletionInterpolates(t *testing.T) {
	source := "don't stop reading"
	tokens := []Token{
		{Text: "dont", Start: 0.0, End: 0.4},
		{Text: "reading", Start: 0.9, End: 1.3},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)

	if !approxEqual(words[0].Start, 0.0) || !approxEqual(words[0].End, 0.4) {
		t.Fatalf("don't = [%v, %v], want [0, 0.4]", words[0].Start, words[0].End)
	}
	if !approxEqual(words[1].Start, 0.4) || !approxEqual(words[1].End, 0.9) {
		t.Fatalf("stop = [%v, %v], want [0.4, 0.9]", words[1].Start, words[1].End)
	}
	if !approxEqual(words[2].Start, 0.9) || !approxEqual(words[2].End, 1.3) {
		t.Fatalf("reading = [%v, %v], want [0.9, 1.3]", words[2].Start, words[2].End)
	}
}

func TestWordsMultiTokenGapSpreadsLinearly(t *testing.T) {
	source := "one two three four five"
	tokens := []Token{
		{Text: "one", Start: 0.0, End: 1.0},
		{Text: "five", Start: 4.0, End: 5.0},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)

	// Three unmatched words split [1.0, 4.0] into equal thirds.
	want := [][2]float64{{1.0, 2.0}, {2.0, 3.0}, {3.0, 4.0}}
	for k, w := range want {
		got := words[k+1]
		if !approxEqual(got.Start, w[0]) || !approxEqual(got.End, w[1]) {
			t.Fatalf("word %d = [%v, %v], want [%v, %v]", k+1, got.Start, got.End, w[0], w[1])
		}
	}
}

func TestWordsASRInsertionSkipped(t *testing.T) {
	source := "hello world"
	tokens := []Token{
		{Text: "hello", Start: 0.0, End: 0.3},
		{Text: "uh", Start: 0.3, End: 0.5},
		{Text: "um", Start: 0.5, End: 0.6},
		{Text: "world", Start: 0.6, End: 1.0},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)
	if !approxEqual(words[1].Start, 0.6) || !approxEqual(words[1].End, 1.0) {
		t.Fatalf("world = [%v, %v], want [0.6, 1.0]", words[1].Start, words[1].End)
	}
}

func TestWordsLeadingRunClampsToFirstMatch(t *testing.T) {
	source := "zzzqq yyyqq hello world"
	tokens := []Token{
		{Text: "hello", Start: 2.0, End: 2.3},
		{Text: "world", Start: 2.3, End: 2.7},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)
	for i := 0; i < 2; i++ {
		if !approxEqual(words[i].Start, 2.0) || !approxEqual(words[i].End, 2.0) {
			t.Fatalf("leading word %d = [%v, %v], want [2.0, 2.0]", i, words[i].Start, words[i].End)
		}
	}
}

func TestWordsTrailingRunClampsToLastMatch(t *testing.T) {
	source := "hello world zzzqq yyyqq"
	tokens := []Token{
		{Text: "hello", Start: 0.0, End: 0.3},
		{Text: "world", Start: 0.3, End: 0.7},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)
	for i := 2; i < 4; i++ {
		if !approxEqual(words[i].Start, 0.7) || !approxEqual(words[i].End, 0.7) {
			t.Fatalf("trailing word %d = [%v, %v], want [0.7, 0.7]", i, words[i].Start, words[i].End)
		}
	}
}

func TestWordsSubstitutionConsumesBoth(t *testing.T) {
	source := "she read aloud"
	tokens := []Token{
		{Text: "she", Start: 0.0, End: 0.2},
		{Text: "red", Start: 0.2, End: 0.5},
		{Text: "aloud", Start: 0.5, End: 0.9},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)
	// "read" vs "red" is a substitution; it gets interpolated between anchors.
	if !approxEqual(words[0].Start, 0.0) || !approxEqual(words[2].End, 0.9) {
		t.Fatalf("anchors drifted: %+v", words)
	}
	if !approxEqual(words[1].Start, 0.2) || !approxEqual(words[1].End, 0.5) {
		t.Fatalf("substituted word = [%v, %v], want [0.2, 0.5]", words[1].Start, words[1].End)
	}
}

func TestWordsNoMatchesYieldsZeros(t *testing.T) {
	source := "alpha beta gamma"
	tokens := []Token{
		{Text: "completely", Start: 0.0, End: 0.5},
		{Text: "different", Start: 0.5, End: 1.0},
		{Text: "transcript", Start: 1.0, End: 1.5},
		{Text: "entirely", Start: 1.5, End: 2.0},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)
	for i, w := range words {
		if w.Start != 0 || w.End != 0 {
			t.Fatalf("word %d = [%v, %v], want zeros", i, w.Start, w.End)
		}
	}
}

func TestWordsEmptySource(t *testing.T) {
	if words := Words("", []Token{{Text: "hi", Start: 0, End: 1}}); words != nil {
		t.Fatalf("expected nil for empty source, got %+v", words)
	}
	if words := Words("   \n\t ", nil); words != nil {
		t.Fatalf("expected nil for whitespace source, got %+v", words)
	}
}

func TestWordsPunctuationOnlySpans(t *testing.T) {
	source := `hello - world`
	tokens := []Token{
		{Text: "hello", Start: 0.0, End: 0.3},
		{Text: "world", Start: 0.5, End: 0.9},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)
	if !approxEqual(words[0].End, 0.3) || !approxEqual(words[2].Start, 0.5) {
		t.Fatalf("matched words mistimed: %+v", words)
	}
	// The dash sits inside [0.3, 0.5].
	if words[1].Start < 0.3 || words[1].End > 0.5 {
		t.Fatalf("punctuation span = [%v, %v], want within [0.3, 0.5]", words[1].Start, words[1].End)
	}
}

func TestWordsOutOfOrderTimestampsClamp(t *testing.T) {
	source := "one two three"
	tokens := []Token{
		{Text: "one", Start: 0.0, End: 1.0},
		{Text: "three", Start: 0.5, End: 1.5},
	}
	words := Words(source, tokens)
	checkInvariants(t, source, words)
	// The bracketing interval is inverted, so the gap collapses to a point.
	if !approxEqual(words[1].Start, 1.0) || !approxEqual(words[1].End, 1.0) {
		t.Fatalf("collapsed word = [%v, %v], want [1.0, 1.0]", words[1].Start, words[1].End)
	}
}

func TestLoadTokens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.json")
	testsupport.WriteFile(t, path, `[
		{"word": "hello", "start": 0.1, "end": 0.4, "score": 0.97},
		{"word": "world", "start": 0.4, "end": 0.8}
	]`)

	tokens, err := LoadTokens(path)
	if err != nil {
		t.Fatalf("LoadTokens: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("token count = %d, want 2", len(tokens))
	}
	if tokens[0].Text != "hello" || !approxEqual(tokens[0].Confidence, 0.97) {
		t.Fatalf("first token = %+v", tokens[0])
	}
	if _, err := LoadTokens(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

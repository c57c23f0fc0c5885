package align

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// punctuationReplacer unifies typographic variants before comparison. The
// source text keeps its original form; only the comparison key changes.
var punctuationReplacer = strings.NewReplacer(
	"’", "'", // right single quote
	"‘", "'", // left single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"—", "-", // em dash
	"–", "-", // en dash
)

// Normalize produces the comparison key for a token: NFKC-normalized,
// apostrophe-unified, case-folded, with everything except letters, digits,
// and underscores stripped. An empty result means the token is pure
// punctuation and can never match ASR output.
func Normalize(token string) string {
	token = norm.NFKC.String(token)
	token = punctuationReplacer.Replace(token)
	token = strings.ToLower(token)
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sourceToken pairs a source-text span with its comparison key.
type sourceToken struct {
	text  string
	clean string
}

// splitSource tokenizes chapter text into whitespace-delimited spans,
// preserving the original spelling of each span.
func splitSource(text string) []sourceToken {
	fields := strings.Fields(text)
	tokens := make([]sourceToken, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, sourceToken{text: f, clean: Normalize(f)})
	}
	return tokens
}

// SourceTokenCount reports how many aligned words a chapter text yields.
// Useful for validating alignment artifacts without re-running alignment.
func SourceTokenCount(text string) int {
	return len(strings.Fields(text))
}

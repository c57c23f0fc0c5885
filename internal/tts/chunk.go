package tts

import (
	"strings"
	"unicode"
)

// SplitChunks breaks chapter text into synthesis-sized pieces of at most
// maxChars characters, preferring sentence boundaries, then clause
// boundaries, then word boundaries. Chunk order preserves text order and the
// concatenation of chunks covers the whole text.
func SplitChunks(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, sentence := range splitSentences(text) {
		if len(sentence) > maxChars {
			flush()
			chunks = append(chunks, splitOversized(sentence, maxChars)...)
			continue
		}
		if current.Len() > 0 && current.Len()+1+len(sentence) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	flush()
	return chunks
}

// splitSentences cuts text at sentence-ending punctuation followed by
// whitespace, keeping trailing quotes with their sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		end := i + 1
		for end < len(runes) && (runes[end] == '"' || runes[end] == '”' || runes[end] == '\'' || runes[end] == '’' || runes[end] == ')') {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitOversized handles a single sentence longer than the budget: first at
// clause separators, then at word boundaries.
func splitOversized(sentence string, maxChars int) []string {
	var pieces []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, clause := range splitClauses(sentence) {
		if len(clause) > maxChars {
			flush()
			pieces = append(pieces, splitWords(clause, maxChars)...)
			continue
		}
		if current.Len() > 0 && current.Len()+1+len(clause) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(clause)
	}
	flush()
	return pieces
}

func splitClauses(sentence string) []string {
	var clauses []string
	runes := []rune(sentence)
	start := 0
	for i, r := range runes {
		if r != ',' && r != ';' && r != ':' && r != '—' {
			continue
		}
		if c := strings.TrimSpace(string(runes[start : i+1])); c != "" {
			clauses = append(clauses, c)
		}
		start = i + 1
	}
	if c := strings.TrimSpace(string(runes[start:])); c != "" {
		clauses = append(clauses, c)
	}
	return clauses
}

func splitWords(clause string, maxChars int) []string {
	words := strings.Fields(clause)
	var pieces []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > maxChars {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// halveChunk splits a chunk at the whitespace nearest its midpoint. It
// returns ok=false when the chunk is a single word and cannot shrink.
func halveChunk(chunk string) (left, right string, ok bool) {
	words := strings.Fields(chunk)
	if len(words) < 2 {
		return "", "", false
	}
	mid := len(words) / 2
	return strings.Join(words[:mid], " "), strings.Join(words[mid:], " "), true
}

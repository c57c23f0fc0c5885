package align

import (
	"encoding/json"
	"fmt"
	"os"
)

// Token is a single ASR output unit: a text fragment with timestamps in
// seconds. Confidence is optional and unused by the aligner itself.
type Token struct {
	Text       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"score,omitempty"`
}

// Word is an aligned output unit: the original source-text span with the
// timestamps it inherited or was assigned.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// LoadTokens reads the raw ASR token list the alignment worker writes.
func LoadTokens(path string) ([]Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asr tokens: %w", err)
	}
	var tokens []Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse asr tokens: %w", err)
	}
	return tokens, nil
}

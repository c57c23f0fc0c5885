package tts

import "context"

// Request contains parameters to synthesize one text chunk.
type Request struct {
	Text  string
	Voice string
}

// Clip contains synthesized audio as 16-bit little-endian PCM.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// DurationSeconds reports the clip length derived from the PCM payload.
func (c *Clip) DurationSeconds() float64 {
	if c == nil || c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	samples := len(c.PCM) / 2 / c.Channels
	return float64(samples) / float64(c.SampleRate)
}

// Engine is the contract for producing audio from text.
type Engine interface {
	Synthesize(ctx context.Context, req Request) (*Clip, error)
	Voices() []string
	Name() string
}

// DefaultVoices is the voice set the bundled engines understand.
var DefaultVoices = []string{"M1", "M3", "F1", "F3"}

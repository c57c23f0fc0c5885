package tts

import (
	"context"
	"strings"
)

// mockEngine produces silent PCM sized proportionally to the input text.
// It keeps tests and dry runs independent of any external synthesis command.
type mockEngine struct {
	sampleRate int
	channels   int
}

// NewMockEngine returns a deterministic in-process engine.
func NewMockEngine(sampleRate, channels int) Engine {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}
	return &mockEngine{sampleRate: sampleRate, channels: channels}
}

func (m *mockEngine) Name() string { return "mock" }

func (m *mockEngine) Voices() []string {
	cp := make([]string, len(DefaultVoices))
	copy(cp, DefaultVoices)
	return cp
}

func (m *mockEngine) Synthesize(ctx context.Context, req Request) (*Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := len(strings.Fields(req.Text))
	if words == 0 {
		words = 1
	}
	// A tenth of a second of silence per word.
	samples := words * m.sampleRate / 10 * m.channels
	return &Clip{
		PCM:        make([]byte, samples*2),
		SampleRate: m.sampleRate,
		Channels:   m.channels,
	}, nil
}

package tts

import (
	"fmt"
	"strings"

	"cadence/internal/config"
	"cadence/internal/services"
)

// NewEngine selects a synthesis backend from configuration.
func NewEngine(cfg config.TTS) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "exec":
		return NewExecEngine(cfg.Command, cfg.SampleRate, cfg.Channels)
	case "mock":
		return NewMockEngine(cfg.SampleRate, cfg.Channels), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "tts", "new engine",
			fmt.Sprintf("unknown engine %q", cfg.Engine), nil)
	}
}

package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateWhisperX(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTTS() error {
	switch c.TTS.Engine {
	case "exec", "mock":
	default:
		return fmt.Errorf("tts.engine: unsupported value %q (use \"exec\" or \"mock\")", c.TTS.Engine)
	}
	if c.TTS.Engine == "exec" && c.TTS.Command == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/cadence/config.toml"
		}
		return fmt.Errorf("tts.command is required. Set CADENCE_TTS_COMMAND env var or edit %s (create with 'cadence config init')", defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"tts.max_chunk_chars": c.TTS.MaxChunkChars,
		"tts.workers":         c.TTS.Workers,
		"tts.sample_rate":     c.TTS.SampleRate,
		"tts.channels":        c.TTS.Channels,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWhisperX() error {
	switch c.WhisperX.Device {
	case "auto", "cuda", "cpu":
	default:
		return fmt.Errorf("whisperx.device: unsupported value %q (use auto, cuda, or cpu)", c.WhisperX.Device)
	}
	if err := ensurePositiveMap(map[string]int{
		"whisperx.batch_size":      c.WhisperX.BatchSize,
		"whisperx.startup_timeout": c.WhisperX.StartupTimeout,
		"whisperx.chapter_timeout": c.WhisperX.ChapterTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeTTS()
	if err := c.normalizeWhisperX(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	c.Extraction.ConverterBinary = strings.TrimSpace(c.Extraction.ConverterBinary)
	if c.Extraction.ConverterBinary == "" {
		c.Extraction.ConverterBinary = defaultConverterBinary
	}
	if c.Extraction.Workers <= 0 {
		c.Extraction.Workers = defaultExtractWorkers
	}
	if c.Extraction.MinDocumentBytes < 0 {
		c.Extraction.MinDocumentBytes = defaultMinDocumentBytes
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Engine = strings.ToLower(strings.TrimSpace(c.TTS.Engine))
	if c.TTS.Engine == "" {
		c.TTS.Engine = defaultTTSEngine
	}
	c.TTS.Command = strings.TrimSpace(c.TTS.Command)
	if c.TTS.Command == "" {
		if value, ok := os.LookupEnv("CADENCE_TTS_COMMAND"); ok {
			c.TTS.Command = strings.TrimSpace(value)
		}
	}
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultVoice
	}
	if c.TTS.MaxChunkChars <= 0 {
		c.TTS.MaxChunkChars = defaultMaxChunkChars
	}
	if c.TTS.MaxChunkChars < minMaxChunkChars {
		c.TTS.MaxChunkChars = minMaxChunkChars
	}
	if c.TTS.Workers <= 0 {
		c.TTS.Workers = defaultSynthWorkers
	}
	if c.TTS.SampleRate <= 0 {
		c.TTS.SampleRate = defaultSampleRate
	}
	if c.TTS.Channels <= 0 {
		c.TTS.Channels = defaultChannels
	}
}

func (c *Config) normalizeWhisperX() error {
	var err error
	c.WhisperX.Python = strings.TrimSpace(c.WhisperX.Python)
	if c.WhisperX.Python == "" {
		if value, ok := os.LookupEnv("CADENCE_WHISPERX_PYTHON"); ok {
			c.WhisperX.Python = strings.TrimSpace(value)
		}
	}
	if c.WhisperX.Python == "" {
		c.WhisperX.Python = discoverPython()
	}
	if c.WhisperX.WorkerScript != "" {
		if c.WhisperX.WorkerScript, err = expandPath(c.WhisperX.WorkerScript); err != nil {
			return fmt.Errorf("whisperx.worker_script: %w", err)
		}
	}
	if c.WhisperX.AlignScript != "" {
		if c.WhisperX.AlignScript, err = expandPath(c.WhisperX.AlignScript); err != nil {
			return fmt.Errorf("whisperx.align_script: %w", err)
		}
	}
	c.WhisperX.Model = strings.TrimSpace(c.WhisperX.Model)
	if c.WhisperX.Model == "" {
		c.WhisperX.Model = defaultWhisperXModel
	}
	if c.WhisperX.BatchSize <= 0 {
		c.WhisperX.BatchSize = defaultWhisperXBatch
	}
	c.WhisperX.ComputeType = strings.TrimSpace(c.WhisperX.ComputeType)
	if c.WhisperX.ComputeType == "" {
		c.WhisperX.ComputeType = defaultComputeType
	}
	c.WhisperX.Device = strings.ToLower(strings.TrimSpace(c.WhisperX.Device))
	if c.WhisperX.Device == "" {
		c.WhisperX.Device = defaultDevice
	}
	if c.WhisperX.StartupTimeout <= 0 {
		c.WhisperX.StartupTimeout = defaultStartupTimeout
	}
	if c.WhisperX.ChapterTimeout <= 0 {
		c.WhisperX.ChapterTimeout = defaultChapterTimeout
	}
	return nil
}

// discoverPython prefers a project-local venv interpreter so alignment does
// not accidentally run in a base/system Python without whisperx installed.
func discoverPython() string {
	if wd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(wd, "venv", "bin", "python")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate
		}
	}
	return "python3"
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

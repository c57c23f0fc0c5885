package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	WorkDir    string `toml:"work_dir"`
}

// Extraction contains configuration for EPUB text extraction.
type Extraction struct {
	// ConverterBinary is the Calibre ebook-convert executable.
	ConverterBinary string `toml:"converter_binary"`
	// Workers bounds parallel per-document conversions.
	Workers int `toml:"workers"`
	// MinDocumentBytes skips spine documents smaller than this (covers,
	// blank separators).
	MinDocumentBytes int64 `toml:"min_document_bytes"`
}

// TTS contains configuration for the speech synthesis engine.
type TTS struct {
	// Engine selects the synthesis backend: "exec" or "mock".
	Engine string `toml:"engine"`
	// Command is the external synthesis command for the exec engine. It is
	// parsed shell-style; the engine speaks newline-delimited JSON with it.
	Command string `toml:"command"`
	// Voice is the default voice style.
	Voice string `toml:"voice"`
	// MaxChunkChars bounds the text length of a single synthesis request.
	MaxChunkChars int `toml:"max_chunk_chars"`
	// Workers bounds the parallel chapter synthesis pool.
	Workers    int `toml:"workers"`
	SampleRate int `toml:"sample_rate"`
	Channels   int `toml:"channels"`
}

// WhisperX contains configuration for forced alignment.
type WhisperX struct {
	// Python is the interpreter used to launch the alignment scripts. When
	// empty a project-local venv is preferred, then "python3".
	Python string `toml:"python"`
	// WorkerScript is the persistent alignment worker entry point.
	WorkerScript string `toml:"worker_script"`
	// AlignScript is the single-run fallback entry point.
	AlignScript string `toml:"align_script"`
	Model       string `toml:"model"`
	BatchSize   int    `toml:"batch_size"`
	ComputeType string `toml:"compute_type"`
	Device      string `toml:"device"`
	// StartupTimeout bounds how long the persistent worker may take to
	// report ready before the import demotes to the fallback path (seconds).
	StartupTimeout int `toml:"startup_timeout"`
	// ChapterTimeout bounds a single chapter alignment call (seconds).
	ChapterTimeout int `toml:"chapter_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Cadence.
//
// Configuration sections by subsystem:
//   - Paths: library, log, and scratch directories
//   - Extraction: Calibre text extraction settings
//   - TTS: synthesis engine, voice, chunking, worker pool
//   - WhisperX: alignment worker scripts, model, timeouts
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Extraction Extraction `toml:"extraction"`
	TTS        TTS        `toml:"tts"`
	WhisperX   WhisperX   `toml:"whisperx"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cadence/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cadence.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LibraryDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

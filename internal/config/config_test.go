package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cadence/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CADENCE_TTS_COMMAND", "cadence-tts --model supertonic")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLibrary := filepath.Join(tempHome, ".local", "share", "cadence", "library")
	if cfg.Paths.LibraryDir != wantLibrary {
		t.Fatalf("unexpected library dir: got %q want %q", cfg.Paths.LibraryDir, wantLibrary)
	}
	if cfg.TTS.Engine != "exec" {
		t.Fatalf("unexpected default tts engine: %q", cfg.TTS.Engine)
	}
	if cfg.TTS.Command != "cadence-tts --model supertonic" {
		t.Fatalf("expected tts command from env, got %q", cfg.TTS.Command)
	}
	if cfg.TTS.Voice != "M3" {
		t.Fatalf("unexpected default voice: %q", cfg.TTS.Voice)
	}
	if cfg.TTS.Workers != 1 {
		t.Fatalf("expected single synthesis worker by default, got %d", cfg.TTS.Workers)
	}
	if cfg.WhisperX.Model != "small" {
		t.Fatalf("unexpected whisperx model: %q", cfg.WhisperX.Model)
	}
	if cfg.WhisperX.Device != "auto" {
		t.Fatalf("unexpected whisperx device: %q", cfg.WhisperX.Device)
	}
	if cfg.WhisperX.StartupTimeout != 120 || cfg.WhisperX.ChapterTimeout != 600 {
		t.Fatalf("unexpected whisperx timeouts: %d/%d", cfg.WhisperX.StartupTimeout, cfg.WhisperX.ChapterTimeout)
	}
	if cfg.WhisperX.Python == "" {
		t.Fatal("expected python interpreter to be discovered")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LibraryDir, cfg.Paths.LogDir, cfg.Paths.WorkDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadParsesFileAndValidates(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "cadence.toml")
	content := strings.Join([]string{
		"[paths]",
		`library_dir = "~/books"`,
		"[tts]",
		`engine = "mock"`,
		"max_chunk_chars = 100",
		"[whisperx]",
		"chapter_timeout = 30",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "books") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if cfg.TTS.Engine != "mock" {
		t.Fatalf("unexpected engine: %q", cfg.TTS.Engine)
	}
	// Minimum chunk size is clamped, not rejected.
	if cfg.TTS.MaxChunkChars != 400 {
		t.Fatalf("expected chunk chars clamped to 400, got %d", cfg.TTS.MaxChunkChars)
	}
	if cfg.WhisperX.ChapterTimeout != 30 {
		t.Fatalf("unexpected chapter timeout: %d", cfg.WhisperX.ChapterTimeout)
	}
}

func TestValidateRejectsExecEngineWithoutCommand(t *testing.T) {
	cfg := config.Default()
	cfg.TTS.Engine = "exec"
	cfg.TTS.Command = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for exec engine without command")
	}
}

func TestValidateRejectsUnknownDevice(t *testing.T) {
	cfg := config.Default()
	cfg.TTS.Engine = "mock"
	cfg.WhisperX.Device = "tpu"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown device")
	}
}

package tts_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cadence/internal/services"
	"cadence/internal/testsupport"
	"cadence/internal/tts"
)

func TestExecEngineCollectsChunks(t *testing.T) {
	script := filepath.Join(t.TempDir(), "tts.sh")
	testsupport.WriteScript(t, script, `#!/bin/sh
cat >/dev/null
printf '{"pcm_base64":"AAAAAA==","final":false}\n'
printf '{"pcm_base64":"AAAAAA==","final":true}\n'
`)

	engine, err := tts.NewExecEngine(script, 16000, 1)
	if err != nil {
		t.Fatalf("NewExecEngine: %v", err)
	}
	clip, err := engine.Synthesize(context.Background(), tts.Request{Text: "hello", Voice: "M3"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(clip.PCM) != 8 {
		t.Fatalf("pcm length = %d, want 8", len(clip.PCM))
	}
	if clip.SampleRate != 16000 || clip.Channels != 1 {
		t.Fatalf("unexpected format: %+v", clip)
	}
}

func TestExecEngineRetryableBackendError(t *testing.T) {
	script := filepath.Join(t.TempDir(), "tts.sh")
	testsupport.WriteScript(t, script, `#!/bin/sh
cat >/dev/null
printf '{"error":"model overloaded","retryable":true}\n'
`)

	engine, err := tts.NewExecEngine(script, 16000, 1)
	if err != nil {
		t.Fatalf("NewExecEngine: %v", err)
	}
	_, err = engine.Synthesize(context.Background(), tts.Request{Text: "hello"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestExecEngineCommandFailure(t *testing.T) {
	script := filepath.Join(t.TempDir(), "tts.sh")
	testsupport.WriteScript(t, script, `#!/bin/sh
cat >/dev/null
echo "model file missing" >&2
exit 3
`)

	engine, err := tts.NewExecEngine(script, 16000, 1)
	if err != nil {
		t.Fatalf("NewExecEngine: %v", err)
	}
	_, err = engine.Synthesize(context.Background(), tts.Request{Text: "hello"})
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
}

func TestNewExecEngineRejectsEmptyCommand(t *testing.T) {
	if _, err := tts.NewExecEngine("   ", 16000, 1); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

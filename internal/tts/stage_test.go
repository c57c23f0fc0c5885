package tts_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"cadence/internal/logging"
	"cadence/internal/services"
	"cadence/internal/stage"
	"cadence/internal/testsupport"
	"cadence/internal/tts"
)

func TestStageExecuteWritesAudioArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "Synth Book", "synth_book")

	lib := cfg.Paths.LibraryDir
	testsupport.WriteFile(t, book.TextPath(lib, 1), "A chapter short enough for one chunk.")

	engine, err := tts.NewEngine(cfg.TTS)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	s := tts.NewStage(cfg.TTS, engine, store, logging.NewNop())

	task := &stage.Task{Book: book, Ordinal: 1}
	ctx := context.Background()
	if err := s.Prepare(ctx, task); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := s.Execute(ctx, task); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	info, err := os.Stat(book.AudioPath(lib, 1))
	if err != nil {
		t.Fatalf("audio artifact missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("audio artifact is empty")
	}

	state := store.LoadState(ctx, book, 1)
	if !state.HasAudio {
		t.Fatalf("expected audio present, got %+v", state)
	}
}

func TestStagePrepareRejectsMissingText(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "No Text", "no_text")

	engine := tts.NewMockEngine(cfg.TTS.SampleRate, cfg.TTS.Channels)
	s := tts.NewStage(cfg.TTS, engine, store, logging.NewNop())

	err := s.Prepare(context.Background(), &stage.Task{Book: book, Ordinal: 1})
	if err == nil {
		t.Fatal("expected missing text to be rejected")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// flakyEngine fails transiently for chunks above a size threshold, so only
// halved chunks succeed.
type flakyEngine struct {
	inner     tts.Engine
	threshold int
	calls     int
}

func (f *flakyEngine) Name() string     { return "flaky" }
func (f *flakyEngine) Voices() []string { return f.inner.Voices() }

func (f *flakyEngine) Synthesize(ctx context.Context, req tts.Request) (*tts.Clip, error) {
	f.calls++
	if len(req.Text) > f.threshold {
		return nil, services.Wrap(services.ErrTransient, "tts", "backend", "model overloaded", nil)
	}
	return f.inner.Synthesize(ctx, req)
}

func TestStageHalvesChunksOnTransientFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "Flaky", "flaky")

	lib := cfg.Paths.LibraryDir
	testsupport.WriteFile(t, book.TextPath(lib, 1), "one two three four five six seven eight")

	engine := &flakyEngine{
		inner:     tts.NewMockEngine(cfg.TTS.SampleRate, cfg.TTS.Channels),
		threshold: 20,
	}
	s := tts.NewStage(cfg.TTS, engine, store, logging.NewNop())

	if err := s.Execute(context.Background(), &stage.Task{Book: book, Ordinal: 1}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if engine.calls < 3 {
		t.Fatalf("expected halving retries, got %d calls", engine.calls)
	}
	if _, err := os.Stat(book.AudioPath(lib, 1)); err != nil {
		t.Fatalf("audio artifact missing after retries: %v", err)
	}
}

func TestStageSurfacesPermanentFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "Broken", "broken")

	lib := cfg.Paths.LibraryDir
	testsupport.WriteFile(t, book.TextPath(lib, 1), "some chapter text")

	engine := &failingEngine{}
	s := tts.NewStage(cfg.TTS, engine, store, logging.NewNop())

	err := s.Execute(context.Background(), &stage.Task{Book: book, Ordinal: 1})
	if err == nil {
		t.Fatal("expected failure to surface")
	}
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if _, statErr := os.Stat(book.AudioPath(lib, 1)); !os.IsNotExist(statErr) {
		t.Fatal("failed synthesis must not leave an audio artifact")
	}
}

type failingEngine struct{}

func (failingEngine) Name() string     { return "failing" }
func (failingEngine) Voices() []string { return nil }

func (failingEngine) Synthesize(context.Context, tts.Request) (*tts.Clip, error) {
	return nil, services.Wrap(services.ErrSynthesis, "tts", "backend", "voice model missing", nil)
}

func TestNewEngineRejectsUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Engine = "sorcery"
	if _, err := tts.NewEngine(cfg.TTS); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMockEngineDeterministic(t *testing.T) {
	engine := tts.NewMockEngine(16000, 1)
	clip, err := engine.Synthesize(context.Background(), tts.Request{Text: "five words in this request"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if clip.DurationSeconds() <= 0 {
		t.Fatal("expected non-empty clip")
	}
	again, err := engine.Synthesize(context.Background(), tts.Request{Text: "five words in this request"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(clip.PCM) != len(again.PCM) {
		t.Fatal("mock engine must be deterministic")
	}
}

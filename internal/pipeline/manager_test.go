package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cadence/internal/config"
	"cadence/internal/extract"
	"cadence/internal/library"
	"cadence/internal/logging"
	"cadence/internal/pipeline"
	"cadence/internal/services"
	"cadence/internal/stage"
	"cadence/internal/testsupport"
)

// stubStage counts Execute calls and delegates to an optional run func.
type stubStage struct {
	mu    sync.Mutex
	calls []int
	run   func(ctx context.Context, task *stage.Task) error
}

func (s *stubStage) Prepare(ctx context.Context, task *stage.Task) error { return nil }

func (s *stubStage) Execute(ctx context.Context, task *stage.Task) error {
	s.mu.Lock()
	s.calls = append(s.calls, task.Ordinal)
	s.mu.Unlock()
	if s.run != nil {
		return s.run(ctx, task)
	}
	return nil
}

func (s *stubStage) HealthCheck(context.Context) stage.Health { return stage.Healthy("stub") }

func (s *stubStage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fixture struct {
	cfg   *config.Config
	store *library.Store
	book  *library.Book
	lib   string
}

// newFixture seeds a book with chapter text artifacts already extracted.
func newFixture(t *testing.T, chapters int) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "Pipeline Book", "pipeline_book")
	lib := store.LibraryDir()

	ctx := context.Background()
	for ord := 1; ord <= chapters; ord++ {
		testsupport.WriteFile(t, book.TextPath(lib, ord),
			fmt.Sprintf("chapter %d has a few words to speak\n", ord))
		if err := store.UpsertChapter(ctx, book.ID, ord, fmt.Sprintf("Chapter %d", ord), library.StatusTextReady); err != nil {
			t.Fatalf("seed chapter %d: %v", ord, err)
		}
	}
	book.ChaptersTotal = chapters
	if err := store.UpdateBook(ctx, book); err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return &fixture{cfg: cfg, store: store, book: book, lib: lib}
}

// synthWriter returns a run func that leaves a committed-looking WAV.
func (f *fixture) synthWriter(t *testing.T) func(context.Context, *stage.Task) error {
	return func(_ context.Context, task *stage.Task) error {
		t.Helper()
		return library.WriteFileAtomic(task.Book.AudioPath(f.lib, task.Ordinal), []byte("RIFFstubwav"))
	}
}

func (f *fixture) alignWriter(t *testing.T) func(context.Context, *stage.Task) error {
	return func(_ context.Context, task *stage.Task) error {
		t.Helper()
		return library.WriteJSONAtomic(task.Book.AlignmentPath(f.lib, task.Ordinal),
			[]map[string]any{{"word": "chapter", "start": 0.0, "end": 0.4}})
	}
}

func (f *fixture) manager(synth, align stage.Handler) *pipeline.Manager {
	return pipeline.NewManagerWithStages(f.cfg, f.store, logging.NewNop(), nil, synth, align)
}

func (f *fixture) chapterStatus(t *testing.T, ordinal int) library.Status {
	t.Helper()
	ch, err := f.store.GetChapter(context.Background(), f.book.ID, ordinal)
	if err != nil {
		t.Fatalf("GetChapter %d: %v", ordinal, err)
	}
	if ch == nil {
		t.Fatalf("chapter %d has no row", ordinal)
	}
	return ch.Status
}

func TestRunImportProcessesAllChapters(t *testing.T) {
	f := newFixture(t, 3)
	synth := &stubStage{run: f.synthWriter(t)}
	align := &stubStage{run: f.alignWriter(t)}
	m := f.manager(synth, align)

	progress, err := m.RunImport(context.Background(), f.book)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	want := library.Progress{ChaptersTotal: 3, AudioReady: 3, AlignmentReady: 3}
	if progress != want {
		t.Fatalf("progress = %+v, want %+v", progress, want)
	}
	if synth.count() != 3 || align.count() != 3 {
		t.Fatalf("stage calls = %d/%d, want 3/3", synth.count(), align.count())
	}
	for ord := 1; ord <= 3; ord++ {
		if got := f.chapterStatus(t, ord); got != library.StatusAligned {
			t.Fatalf("chapter %d status = %s, want aligned", ord, got)
		}
	}

	stored, err := f.store.LoadProgress(context.Background(), f.book.ID)
	if err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	if stored != want {
		t.Fatalf("stored progress = %+v, want %+v", stored, want)
	}
}

func TestRunImportIdempotentResume(t *testing.T) {
	f := newFixture(t, 2)
	first := f.manager(&stubStage{run: f.synthWriter(t)}, &stubStage{run: f.alignWriter(t)})
	if _, err := first.RunImport(context.Background(), f.book); err != nil {
		t.Fatalf("first run: %v", err)
	}

	synth := &stubStage{}
	align := &stubStage{}
	second := f.manager(synth, align)
	progress, err := second.RunImport(context.Background(), f.book)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if synth.count() != 0 || align.count() != 0 {
		t.Fatalf("second run redid work: synth=%d align=%d", synth.count(), align.count())
	}
	want := library.Progress{ChaptersTotal: 2, AudioReady: 2, AlignmentReady: 2}
	if progress != want {
		t.Fatalf("progress = %+v, want %+v", progress, want)
	}
}

func TestRunImportContinuesPastSynthesisFailure(t *testing.T) {
	f := newFixture(t, 3)
	synthOK := f.synthWriter(t)
	synth := &stubStage{run: func(ctx context.Context, task *stage.Task) error {
		if task.Ordinal == 2 {
			return services.Wrap(services.ErrSynthesis, "tts", "synthesize", "engine exploded", nil)
		}
		return synthOK(ctx, task)
	}}
	align := &stubStage{run: f.alignWriter(t)}

	progress, err := f.manager(synth, align).RunImport(context.Background(), f.book)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if progress.AudioReady != 2 || progress.AlignmentReady != 2 {
		t.Fatalf("progress = %+v, want 2 audio and 2 aligned", progress)
	}
	if got := f.chapterStatus(t, 2); got != library.StatusFailed {
		t.Fatalf("chapter 2 status = %s, want failed", got)
	}
	ch, err := f.store.GetChapter(context.Background(), f.book.ID, 2)
	if err != nil || ch == nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if !strings.Contains(ch.LastError, "engine exploded") {
		t.Fatalf("last error not recorded: %q", ch.LastError)
	}
	for _, ord := range []int{1, 3} {
		if got := f.chapterStatus(t, ord); got != library.StatusAligned {
			t.Fatalf("chapter %d status = %s, want aligned", ord, got)
		}
	}
}

func TestRunImportAlignmentFailureKeepsAudio(t *testing.T) {
	f := newFixture(t, 2)
	alignOK := f.alignWriter(t)
	align := &stubStage{run: func(ctx context.Context, task *stage.Task) error {
		if task.Ordinal == 1 {
			return services.Wrap(services.ErrAlignmentTimeout, "align", "worker", "too slow", nil)
		}
		return alignOK(ctx, task)
	}}

	progress, err := f.manager(&stubStage{run: f.synthWriter(t)}, align).RunImport(context.Background(), f.book)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if got := f.chapterStatus(t, 1); got != library.StatusFailed {
		t.Fatalf("chapter 1 status = %s, want failed", got)
	}
	if got := f.chapterStatus(t, 2); got != library.StatusAligned {
		t.Fatalf("chapter 2 status = %s, want aligned", got)
	}
	// The synthesized audio survives the alignment failure.
	state := f.store.LoadState(context.Background(), f.book, 1)
	if !state.HasAudio || state.HasAlignment {
		t.Fatalf("chapter 1 state = %+v, want audio kept without alignment", state)
	}
	if progress.AudioReady != 2 || progress.AlignmentReady != 1 {
		t.Fatalf("progress = %+v, want 2 audio and 1 aligned", progress)
	}
}

func TestRunImportCancellationLeavesAudioReady(t *testing.T) {
	f := newFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	align := &stubStage{run: func(ctx context.Context, task *stage.Task) error {
		cancel()
		return ctx.Err()
	}}

	progress, err := f.manager(&stubStage{run: f.synthWriter(t)}, align).RunImport(ctx, f.book)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !progress.Cancelled {
		t.Fatal("snapshot must record cancellation")
	}
	if got := f.chapterStatus(t, 1); got != library.StatusAudioReady {
		t.Fatalf("chapter status = %s, want audio_ready", got)
	}
	if progress.AudioReady != 1 || progress.AlignmentReady != 0 {
		t.Fatalf("progress = %+v, want 1 audio and 0 aligned", progress)
	}
}

func TestRunImportFailsChapterWithMissingText(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	if err := f.store.UpsertChapter(ctx, f.book.ID, 2, "Chapter 2", library.StatusPending); err != nil {
		t.Fatalf("seed chapter 2: %v", err)
	}
	f.book.ChaptersTotal = 2
	if err := f.store.UpdateBook(ctx, f.book); err != nil {
		t.Fatalf("seed book: %v", err)
	}

	progress, err := f.manager(&stubStage{run: f.synthWriter(t)}, &stubStage{run: f.alignWriter(t)}).RunImport(ctx, f.book)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	if got := f.chapterStatus(t, 1); got != library.StatusAligned {
		t.Fatalf("chapter 1 status = %s, want aligned", got)
	}
	if got := f.chapterStatus(t, 2); got != library.StatusFailed {
		t.Fatalf("chapter 2 status = %s, want failed", got)
	}
	if progress.AlignmentReady != 1 {
		t.Fatalf("progress = %+v, want 1 aligned", progress)
	}
}

func TestRunImportExtractsWhenBookHasNoChapters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Extraction.MinDocumentBytes = 1
	store := testsupport.MustOpenStore(t, cfg)
	book := testsupport.NewBook(t, store, "Fresh Book", "fresh_book")
	book.SourcePath = "/tmp/fresh.epub"
	lib := store.LibraryDir()

	extractor := extract.New(cfg, store, logging.NewNop())
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if len(args) == 2 {
			testsupport.WriteFile(t, filepath.Join(args[1], "ch1.html"), "<html>only chapter</html>")
			return nil
		}
		testsupport.WriteFile(t, args[1], "only chapter text\n")
		return nil
	})

	f := &fixture{cfg: cfg, store: store, book: book, lib: lib}
	m := pipeline.NewManagerWithStages(cfg, store, logging.NewNop(), extractor,
		&stubStage{run: f.synthWriter(t)}, &stubStage{run: f.alignWriter(t)})

	progress, err := m.RunImport(context.Background(), book)
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}
	want := library.Progress{ChaptersTotal: 1, AudioReady: 1, AlignmentReady: 1}
	if progress != want {
		t.Fatalf("progress = %+v, want %+v", progress, want)
	}
	if got := f.chapterStatus(t, 1); got != library.StatusAligned {
		t.Fatalf("chapter status = %s, want aligned", got)
	}
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"cadence/internal/library"
	"cadence/internal/logging"
	"cadence/internal/services"
	"cadence/internal/stage"
)

// RunImport processes every chapter of the book. Chapters already aligned
// are skipped, per-chapter failures are recorded and the run continues, and
// cancellation stops at the next stage boundary leaving committed state
// untouched. The returned snapshot reflects the final counters.
func (m *Manager) RunImport(ctx context.Context, book *library.Book) (library.Progress, error) {
	if book == nil {
		return library.Progress{}, errors.New("book is nil")
	}
	ctx = services.WithBookID(ctx, book.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	log := logging.WithContext(ctx, m.logger)

	if book.ChaptersTotal == 0 {
		if err := ctx.Err(); err != nil {
			return library.Progress{}, err
		}
		produced, err := m.extractor.Run(ctx, book, book.SourcePath)
		if err != nil {
			return library.Progress{}, err
		}
		log.Info("extraction complete", logging.Int("chapters", produced))
	}
	total := book.ChaptersTotal
	if total == 0 {
		return library.Progress{}, services.Wrap(services.ErrExtraction, "pipeline", "import",
			"book has no chapters", nil)
	}

	if err := m.store.ResetProgress(ctx, book.ID); err != nil {
		return library.Progress{}, err
	}
	m.mu.Lock()
	m.progress = library.Progress{ChaptersTotal: total}
	m.mu.Unlock()
	m.saveProgress(ctx, book)

	log.Info("import started", logging.Int("chapters", total))

	workers := m.cfg.TTS.Workers
	if workers < 1 {
		workers = 1
	}

	// Alignment is a single serialized channel: the worker holds one warm
	// model instance and cannot serve concurrent requests. The buffer lets
	// synthesis workers hand off without stalling the pool.
	alignCh := make(chan int, total)
	var alignWG sync.WaitGroup
	alignWG.Add(1)
	go func() {
		defer alignWG.Done()
		for ordinal := range alignCh {
			m.alignChapter(ctx, book, ordinal)
		}
	}()

	ordCh := make(chan int)
	var synthWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		synthWG.Add(1)
		go func() {
			defer synthWG.Done()
			for ordinal := range ordCh {
				m.runChapter(ctx, book, ordinal, alignCh)
			}
		}()
	}

feed:
	for ordinal := 1; ordinal <= total; ordinal++ {
		select {
		case ordCh <- ordinal:
		case <-ctx.Done():
			break feed
		}
	}
	close(ordCh)
	synthWG.Wait()
	close(alignCh)
	alignWG.Wait()

	cancelled := ctx.Err() != nil
	m.mu.Lock()
	m.progress.Cancelled = cancelled
	snapshot := m.progress
	m.mu.Unlock()
	if err := m.store.SaveProgress(context.WithoutCancel(ctx), book.ID, snapshot); err != nil {
		log.Warn("final progress snapshot not persisted", logging.Error(err))
	}

	if cancelled {
		log.Info("import cancelled",
			logging.Int("audio_ready", snapshot.AudioReady),
			logging.Int("alignment_ready", snapshot.AlignmentReady))
		return snapshot, ctx.Err()
	}
	log.Info("import finished",
		logging.Int("audio_ready", snapshot.AudioReady),
		logging.Int("alignment_ready", snapshot.AlignmentReady))
	return snapshot, nil
}

// runChapter performs the synthesis half of one chapter's remaining work and
// hands the chapter to the alignment channel once audio_ready is committed.
func (m *Manager) runChapter(ctx context.Context, book *library.Book, ordinal int, alignCh chan<- int) {
	ctx = services.WithChapter(ctx, ordinal)
	log := logging.WithContext(ctx, m.logger)

	state := m.store.LoadState(ctx, book, ordinal)
	switch {
	case state.HasAlignment:
		m.bumpAudio(ctx, book)
		m.bumpAlignment(ctx, book)
		log.Debug("chapter already aligned, skipping")
		return
	case state.HasAudio:
		m.bumpAudio(ctx, book)
	case state.HasText:
		if err := m.executeStage(ctx, m.synth, book, ordinal); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.failChapter(ctx, log, book, ordinal, err)
			return
		}
		if err := m.store.CommitState(ctx, book, ordinal, library.ArtifactState{
			HasText:  true,
			HasAudio: true,
		}); err != nil {
			log.Error("audio_ready commit failed", logging.Error(err))
			return
		}
		m.bumpAudio(ctx, book)
	default:
		m.failChapter(ctx, log, book, ordinal, services.Wrap(
			services.ErrExtraction, "pipeline", "synthesize", "chapter text missing", nil))
		return
	}

	// Alignment is only submitted after audio_ready is committed, and never
	// once cancellation is requested.
	if ctx.Err() != nil {
		return
	}
	alignCh <- ordinal
}

// alignChapter performs the alignment half; it runs on the single alignment
// goroutine.
func (m *Manager) alignChapter(ctx context.Context, book *library.Book, ordinal int) {
	ctx = services.WithChapter(ctx, ordinal)
	log := logging.WithContext(ctx, m.logger)

	if ctx.Err() != nil {
		return
	}
	if err := m.executeStage(ctx, m.align, book, ordinal); err != nil {
		if ctx.Err() != nil {
			return
		}
		m.failChapter(ctx, log, book, ordinal, err)
		return
	}
	if err := m.store.CommitState(ctx, book, ordinal, library.ArtifactState{
		HasText:      true,
		HasAudio:     true,
		HasAlignment: true,
	}); err != nil {
		log.Error("aligned commit failed", logging.Error(err))
		return
	}
	m.bumpAlignment(ctx, book)
}

func (m *Manager) executeStage(ctx context.Context, handler stage.Handler, book *library.Book, ordinal int) error {
	task := &stage.Task{Book: book, Ordinal: ordinal}
	if err := handler.Prepare(ctx, task); err != nil {
		return err
	}
	return handler.Execute(ctx, task)
}

func (m *Manager) failChapter(ctx context.Context, log *slog.Logger, book *library.Book, ordinal int, cause error) {
	log.Error("chapter failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "inspect with 'cadence status' after the run"))
	if err := m.store.FailChapter(ctx, book, ordinal, cause); err != nil {
		log.Error("failure record not persisted", logging.Error(err))
	}
}

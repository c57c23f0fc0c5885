package pipeline

import (
	"context"

	"cadence/internal/library"
	"cadence/internal/logging"
)

// bumpAudio counts one chapter whose audio artifact is committed. Counters
// only move forward; each chapter contributes at most once per run.
func (m *Manager) bumpAudio(ctx context.Context, book *library.Book) {
	m.mu.Lock()
	m.progress.AudioReady++
	m.mu.Unlock()
	m.saveProgress(ctx, book)
}

func (m *Manager) bumpAlignment(ctx context.Context, book *library.Book) {
	m.mu.Lock()
	m.progress.AlignmentReady++
	m.mu.Unlock()
	m.saveProgress(ctx, book)
}

// saveProgress persists the current snapshot. The store keeps counters
// monotonic, so a belated save can never roll a reader's view backward.
func (m *Manager) saveProgress(ctx context.Context, book *library.Book) {
	m.mu.RLock()
	snapshot := m.progress
	m.mu.RUnlock()
	if err := m.store.SaveProgress(context.WithoutCancel(ctx), book.ID, snapshot); err != nil {
		logging.WithContext(ctx, m.logger).Warn("progress snapshot not persisted", logging.Error(err))
	}
}

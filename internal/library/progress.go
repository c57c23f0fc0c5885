package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveProgress persists the book-level progress snapshot. Counters are only
// allowed to move forward; a snapshot with smaller counts than the stored row
// keeps the stored values (the cancelled flag always wins).
func (s *Store) SaveProgress(ctx context.Context, bookID int64, p Progress) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO progress (book_id, chapters_total, audio_ready, alignment_ready, cancelled, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(book_id) DO UPDATE SET
             chapters_total = excluded.chapters_total,
             audio_ready = MAX(progress.audio_ready, excluded.audio_ready),
             alignment_ready = MAX(progress.alignment_ready, excluded.alignment_ready),
             cancelled = excluded.cancelled,
             updated_at = excluded.updated_at`,
		bookID,
		p.ChaptersTotal,
		p.AudioReady,
		p.AlignmentReady,
		boolToInt(p.Cancelled),
		now,
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// LoadProgress returns the stored snapshot for a book, or a zero Progress
// when no import has run yet.
func (s *Store) LoadProgress(ctx context.Context, bookID int64) (Progress, error) {
	var (
		total     int
		audio     int
		alignment int
		cancelled int
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT chapters_total, audio_ready, alignment_ready, cancelled FROM progress WHERE book_id = ?`,
		bookID,
	).Scan(&total, &audio, &alignment, &cancelled)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, nil
	}
	if err != nil {
		return Progress{}, fmt.Errorf("load progress: %w", err)
	}
	return Progress{
		ChaptersTotal:  total,
		AudioReady:     audio,
		AlignmentReady: alignment,
		Cancelled:      cancelled != 0,
	}, nil
}

// ResetProgress clears the stored snapshot ahead of a fresh import run.
func (s *Store) ResetProgress(ctx context.Context, bookID int64) error {
	_, err := s.execWithRetry(ctx, `DELETE FROM progress WHERE book_id = ?`, bookID)
	if err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}

package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cadence/internal/services"
)

const chapterColumns = "book_id, ordinal, title, status, text_fingerprint, last_error, updated_at"

// UpsertChapter creates or refreshes a chapter row. Extraction calls this
// once per spine document; later stages go through CommitState.
func (s *Store) UpsertChapter(ctx context.Context, bookID int64, ordinal int, title string, status Status) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO chapters (book_id, ordinal, title, status, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(book_id, ordinal) DO UPDATE SET
             title = excluded.title,
             status = excluded.status,
             updated_at = excluded.updated_at`,
		bookID,
		ordinal,
		nullableString(title),
		status,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert chapter: %w", err)
	}
	return nil
}

// GetChapter fetches one chapter row. A missing row returns (nil, nil).
func (s *Store) GetChapter(ctx context.Context, bookID int64, ordinal int) (*Chapter, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE book_id = ? AND ordinal = ?`,
		bookID, ordinal,
	)
	ch, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return ch, nil
}

// ListChapters returns a book's chapters in source order.
func (s *Store) ListChapters(ctx context.Context, bookID int64) ([]*Chapter, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE book_id = ? ORDER BY ordinal`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}
	return chapters, nil
}

// CommitState persists a chapter's state transactionally. The artifact files
// themselves are written atomically by the stages before this is called;
// CommitState records the matching row and enforces the implication chain.
func (s *Store) CommitState(ctx context.Context, book *Book, ordinal int, state ArtifactState) error {
	if book == nil {
		return errors.New("book is nil")
	}
	if !state.Valid() {
		return services.Wrap(services.ErrValidation, "library", "commit state",
			fmt.Sprintf("chapter %d violates artifact implication chain", ordinal), nil)
	}

	fingerprint := ""
	if state.HasText {
		if fp, err := hashArtifact(book.TextPath(s.libraryDir, ordinal)); err == nil {
			fingerprint = fp
		}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO chapters (book_id, ordinal, status, text_fingerprint, last_error, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(book_id, ordinal) DO UPDATE SET
             status = excluded.status,
             text_fingerprint = excluded.text_fingerprint,
             last_error = excluded.last_error,
             updated_at = excluded.updated_at`,
		book.ID,
		ordinal,
		state.Status(),
		nullableString(fingerprint),
		nullableString(state.LastError),
		now,
	)
	if err != nil {
		return fmt.Errorf("commit chapter state: %w", err)
	}
	return nil
}

// FailChapter records a failure cause without touching artifacts. The
// chapter's committed artifacts keep whatever state disk says they have.
func (s *Store) FailChapter(ctx context.Context, book *Book, ordinal int, cause error) error {
	if book == nil {
		return errors.New("book is nil")
	}
	state := s.deriveDiskState(book, ordinal)
	if cause != nil {
		state.LastError = cause.Error()
	}
	return s.CommitState(ctx, book, ordinal, state)
}

func scanChapter(scanner interface{ Scan(dest ...any) error }) (*Chapter, error) {
	var (
		bookID      int64
		ordinal     int
		title       sql.NullString
		statusStr   string
		fingerprint sql.NullString
		lastError   sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&bookID,
		&ordinal,
		&title,
		&statusStr,
		&fingerprint,
		&lastError,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	ch := &Chapter{
		BookID:          bookID,
		Ordinal:         ordinal,
		Title:           title.String,
		Status:          Status(statusStr),
		TextFingerprint: fingerprint.String,
		LastError:       lastError.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		ch.UpdatedAt = updated
	}
	return ch, nil
}

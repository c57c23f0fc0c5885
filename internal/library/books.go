package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const bookColumns = "id, title, source_path, folder, source_format, voice, chapters_total, created_at, updated_at"

// NewBook inserts a book record. The folder must be unique within the
// library; callers derive it from the source filename.
func (s *Store) NewBook(ctx context.Context, title, sourcePath, folder, sourceFormat string) (*Book, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO books (title, source_path, folder, source_format, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		title,
		nullableString(sourcePath),
		folder,
		nullableString(sourceFormat),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetBook(ctx, id)
}

// GetBook fetches a book by identifier. A missing book returns (nil, nil).
func (s *Store) GetBook(ctx context.Context, id int64) (*Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// FindBookByFolder returns the book owning a library folder, or (nil, nil).
func (s *Store) FindBookByFolder(ctx context.Context, folder string) (*Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE folder = ?`, folder)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find book by folder: %w", err)
	}
	return book, nil
}

// ListBooks returns all books in insertion order.
func (s *Store) ListBooks(ctx context.Context) ([]*Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// UpdateBook persists mutable book fields.
func (s *Store) UpdateBook(ctx context.Context, book *Book) error {
	if book == nil {
		return errors.New("book is nil")
	}
	book.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE books SET title = ?, voice = ?, chapters_total = ?, updated_at = ? WHERE id = ?`,
		book.Title,
		nullableString(book.Voice),
		book.ChaptersTotal,
		book.UpdatedAt.Format(time.RFC3339Nano),
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func scanBook(scanner interface{ Scan(dest ...any) error }) (*Book, error) {
	var (
		id            int64
		title         string
		sourcePath    sql.NullString
		folder        string
		sourceFormat  sql.NullString
		voice         sql.NullString
		chaptersTotal sql.NullInt64
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&sourcePath,
		&folder,
		&sourceFormat,
		&voice,
		&chaptersTotal,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	book := &Book{
		ID:            id,
		Title:         title,
		SourcePath:    sourcePath.String,
		Folder:        folder,
		SourceFormat:  sourceFormat.String,
		Voice:         voice.String,
		ChaptersTotal: int(chaptersTotal.Int64),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		book.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		book.UpdatedAt = updated
	}
	return book, nil
}

package testsupport

import (
	"context"
	"testing"

	"cadence/internal/config"
	"cadence/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBook creates a book record for tests using the provided store.
func NewBook(t testing.TB, store *library.Store, title, folder string) *library.Book {
	t.Helper()

	book, err := store.NewBook(context.Background(), title, "", folder, "epub")
	if err != nil {
		t.Fatalf("store.NewBook: %v", err)
	}
	return book
}

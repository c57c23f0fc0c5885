// Package library persists books and per-chapter pipeline status in SQLite
// and owns the on-disk layout of chapter artifacts.
//
// Artifact truth lives on disk, not in the database: LoadState derives the
// has_text/has_audio/has_alignment triple strictly from artifact presence and
// size, so a killed process can never desynchronize status from disk. The
// database rows carry only what disk cannot: chapter status labels, last
// error causes, text fingerprints for staleness detection, and the book-level
// progress counters.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package library

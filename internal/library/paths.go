package library

import (
	"fmt"
	"path/filepath"
)

// Artifact layout inside a book folder:
//
//	<library>/<folder>/ch_001.txt
//	<library>/<folder>/audio/ch_001.wav
//	<library>/<folder>/ch_001.json
//	<library>/<folder>/ch_001.report.json
//
// Ordinals are one-based and zero-padded so shell globs sort correctly.

// Dir returns the book's folder inside the library root.
func (b Book) Dir(libraryDir string) string {
	return filepath.Join(libraryDir, b.Folder)
}

// TextPath returns the chapter plaintext artifact path.
func (b Book) TextPath(libraryDir string, ordinal int) string {
	return filepath.Join(b.Dir(libraryDir), fmt.Sprintf("ch_%03d.txt", ordinal))
}

// AudioPath returns the chapter WAV artifact path.
func (b Book) AudioPath(libraryDir string, ordinal int) string {
	return filepath.Join(b.Dir(libraryDir), "audio", fmt.Sprintf("ch_%03d.wav", ordinal))
}

// AlignmentPath returns the chapter word-timestamp artifact path.
func (b Book) AlignmentPath(libraryDir string, ordinal int) string {
	return filepath.Join(b.Dir(libraryDir), fmt.Sprintf("ch_%03d.json", ordinal))
}

// ReportPath returns the per-chapter alignment report path.
func (b Book) ReportPath(libraryDir string, ordinal int) string {
	return filepath.Join(b.Dir(libraryDir), fmt.Sprintf("ch_%03d.report.json", ordinal))
}

package library

import (
	"context"
	"os"

	"cadence/internal/textutil"
)

// LoadState derives a chapter's state from durable storage. Presence means
// the artifact file exists with non-zero size; the implication chain is
// enforced on the way out, so a stray alignment file without audio never
// reads as aligned. Unreadable or corrupt database metadata degrades to a
// zero-value state rather than failing the book.
func (s *Store) LoadState(ctx context.Context, book *Book, ordinal int) ArtifactState {
	if book == nil {
		return ArtifactState{}
	}
	state := s.deriveDiskState(book, ordinal)

	ch, err := s.GetChapter(ctx, book.ID, ordinal)
	if err != nil || ch == nil {
		return state
	}
	state.LastError = ch.LastError

	// A changed source text invalidates downstream artifacts even though
	// the files still exist.
	if state.HasText && ch.TextFingerprint != "" {
		if fp, hashErr := hashArtifact(book.TextPath(s.libraryDir, ordinal)); hashErr == nil && fp != ch.TextFingerprint {
			state.HasAudio = false
			state.HasAlignment = false
		}
	}
	return state
}

func (s *Store) deriveDiskState(book *Book, ordinal int) ArtifactState {
	state := ArtifactState{
		HasText:      artifactPresent(book.TextPath(s.libraryDir, ordinal)),
		HasAudio:     artifactPresent(book.AudioPath(s.libraryDir, ordinal)),
		HasAlignment: artifactPresent(book.AlignmentPath(s.libraryDir, ordinal)),
	}
	if !state.HasText {
		state.HasAudio = false
	}
	if !state.HasAudio {
		state.HasAlignment = false
	}
	return state
}

func artifactPresent(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

func hashArtifact(path string) (string, error) {
	return textutil.HashFile(path)
}

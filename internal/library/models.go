package library

import (
	"strings"
	"time"
)

// Status labels a chapter's position in the pipeline. It is a cached
// presentation value; resume decisions always come from the ArtifactState
// triple derived from disk.
type Status string

const (
	StatusPending    Status = "pending"
	StatusTextReady  Status = "text_ready"
	StatusAudioReady Status = "audio_ready"
	StatusAligned    Status = "aligned"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusTextReady,
	StatusAudioReady,
	StatusAligned,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Book is one imported title and its library folder.
type Book struct {
	ID            int64
	Title         string
	SourcePath    string
	Folder        string
	SourceFormat  string
	Voice         string
	ChaptersTotal int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chapter is the persisted record for one ordinal unit of a book.
type Chapter struct {
	BookID          int64
	Ordinal         int
	Title           string
	Status          Status
	TextFingerprint string
	LastError       string
	UpdatedAt       time.Time
}

// ArtifactState is the disk-derived truth for one chapter. The orchestrator
// recomputes required work purely from this triple.
//
// Invariant: HasAlignment implies HasAudio implies HasText.
type ArtifactState struct {
	HasText      bool
	HasAudio     bool
	HasAlignment bool
	LastError    string
}

// Valid reports whether the implication chain holds.
func (s ArtifactState) Valid() bool {
	if s.HasAlignment && !s.HasAudio {
		return false
	}
	if s.HasAudio && !s.HasText {
		return false
	}
	return true
}

// Status maps the triple onto the presentation label. A recorded error on a
// non-terminal chapter reads as failed.
func (s ArtifactState) Status() Status {
	switch {
	case s.HasAlignment:
		return StatusAligned
	case s.LastError != "":
		return StatusFailed
	case s.HasAudio:
		return StatusAudioReady
	case s.HasText:
		return StatusTextReady
	default:
		return StatusPending
	}
}

// Progress is the poll-able per-book snapshot consumed by outer layers.
// Counters only move forward within one import run.
type Progress struct {
	ChaptersTotal  int  `json:"chapters_total"`
	AudioReady     int  `json:"audio_ready"`
	AlignmentReady int  `json:"alignment_ready"`
	Cancelled      bool `json:"cancelled"`
}

// Fraction reports overall completion weighting synthesis and alignment
// equally.
func (p Progress) Fraction() float64 {
	if p.ChaptersTotal <= 0 {
		return 0
	}
	return float64(p.AudioReady+p.AlignmentReady) / float64(2*p.ChaptersTotal)
}

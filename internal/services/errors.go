package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")

	// Pipeline stage failures.
	ErrExtraction = errors.New("extraction error")
	ErrSynthesis  = errors.New("synthesis error")

	// ErrAlignmentStartup marks a persistent alignment worker that never
	// reported ready. The supervisor demotes to the fallback path for the
	// rest of the import when it sees this.
	ErrAlignmentStartup = errors.New("alignment worker startup timeout")
	// ErrAlignmentTimeout marks a single alignment call that exceeded the
	// per-chapter budget. Only the chapter fails; the supervisor keeps going.
	ErrAlignmentTimeout = errors.New("alignment timeout")
	// ErrProtocol marks a malformed response from the alignment worker.
	ErrProtocol = errors.New("alignment protocol error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

package stage

import (
	"context"

	"cadence/internal/library"
)

// Task identifies one chapter's unit of work for a stage.
type Task struct {
	Book    *library.Book
	Ordinal int
}

// Handler describes the contract the pipeline manager needs from each stage.
// Prepare validates inputs and may be called without Execute following;
// Execute performs the work and must leave committed state untouched on
// failure.
type Handler interface {
	Prepare(context.Context, *Task) error
	Execute(context.Context, *Task) error
	HealthCheck(context.Context) Health
}

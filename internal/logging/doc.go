// Package logging builds the slog loggers used across Cadence.
//
// It provides JSON and console handlers with consistent timestamp and level
// formatting, attribute helper aliases, standardized field name constants,
// and context-derived fields (book, chapter, stage, correlation id) so every
// package logs the same vocabulary.
package logging

// Package textutil provides small text helpers shared across the pipeline:
// filesystem-safe naming and content fingerprinting.
package textutil

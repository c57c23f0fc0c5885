// Package services defines the shared error taxonomy and context plumbing
// used by pipeline stages and external tool wrappers.
//
// Errors are tagged with sentinel markers via Wrap so the orchestrator can
// classify a failure (synthesis, alignment timeout, worker startup, protocol)
// without string matching. Context helpers carry book, chapter, stage, and
// correlation identifiers so logging stays consistent across packages.
package services

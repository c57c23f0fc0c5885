// Package main hosts the Cadence CLI entrypoint and command graph.
//
// The Cobra-based command tree covers importing a book through the full
// extract/synthesize/align pipeline, inspecting per-chapter state, listing
// the library, enumerating TTS voices, and configuration scaffolding. It
// centralizes configuration resolution and structured logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main

// Package whisperx obtains word-level ASR output for synthesized chapter
// audio. The Supervisor prefers a persistent worker process that keeps the
// model warm across chapters, demoting permanently to a single-run CLI
// invocation when the worker cannot start, and restarting a worker that dies
// mid-book exactly once before demoting.
//
// The worker speaks newline-delimited JSON over stdin/stdout: a ready event
// on startup, one align request and one aligned or error event per chapter,
// and a shutdown command answered by bye. Raw ASR tokens are written by the
// worker to a file; the Go side loads them and runs its own aligner.
package whisperx

// Package tts synthesizes chapter narration. An Engine turns text into raw
// PCM; the Stage wraps an engine with chunking, retry, and atomic WAV
// artifact writes so the pipeline only sees complete chapter audio.
package tts

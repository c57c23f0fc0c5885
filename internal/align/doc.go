// Package align maps ASR word timestamps back onto the original chapter
// text. The ASR transcript of synthesized narration rarely matches the
// source verbatim; the aligner tolerates insertions, deletions, and
// substitutions while always emitting exactly one timed word per source
// token.
package align

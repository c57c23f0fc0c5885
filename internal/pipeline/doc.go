// Package pipeline drives chapters through extraction, synthesis, and
// alignment for one book import.
//
// Each chapter moves through pending, text_ready, audio_ready, and aligned;
// a failure at any stage records the cause and the import continues with the
// next chapter. The manager decides remaining work purely from the state
// store's on-disk derivation, so a killed import resumes without redoing
// committed stages. Synthesis runs on a bounded worker pool while alignment
// is serialized through a single channel, matching the one warm model
// instance the alignment worker holds.
package pipeline

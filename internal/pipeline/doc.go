// Package pipeline coordinates one vidsub run: extract audio, transcribe it,
// resolve the caption languages, translate, write one SubRip file per
// language, and mux them into the output container.
//
// The run is a linear state machine. Each stage completes before the next
// starts, and any failure moves the run to FAILED and returns immediately:
//
//	START → AUDIO_EXTRACTED → TRANSCRIBED → LANGUAGES_RESOLVED →
//	TRANSLATED → CAPTIONS_WRITTEN → MUXED → DONE
//
// External work happens behind four small capability interfaces
// (AudioExtractor, Transcriber, translation.Provider, Muxer) so the
// coordinator can be exercised with fakes.
package pipeline

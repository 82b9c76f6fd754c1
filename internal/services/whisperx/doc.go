// Package whisperx runs WhisperX speech-to-text through uvx and converts its
// JSON transcript into a caption sequence.
//
// The transcript's detected language becomes the sequence language code.
// Segments with blank text or non-positive duration are dropped so every
// returned segment satisfies start < end.
package whisperx

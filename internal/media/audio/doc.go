// Package audio chooses which audio stream of a video to transcribe.
//
// Select ranks audio streams so that the main dialogue track wins: a language
// tag matching the requested source language first, then tracks that are not
// commentary or audio description, then the default disposition, then channel
// count. The resulting Ordinal feeds ffmpeg's 0:a:N stream specifier.
package audio

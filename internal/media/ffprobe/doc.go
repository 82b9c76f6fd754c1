// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Prober: runs ffprobe through an injectable command runner
//   - Result: parsed output containing streams and format metadata
//   - Stream: per-stream properties plus tag and disposition accessors
//
// The extractor uses it to confirm a video has audio and to choose which
// audio stream to transcribe.
package ffprobe

// Package services defines shared utilities consumed by the pipeline stages and
// the external tool integrations beneath it.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and caption languages
//     for logging.
//   - Structured error markers plus the Wrap helper so every failure names the
//     stage that produced it and can be classified with errors.Is.
//   - A CommandRunner abstraction that keeps external tool invocations testable.
//   - Request types shared by the extraction, speech-to-text, and muxing
//     adapters.
package services

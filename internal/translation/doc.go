// Package translation decides how each requested caption language is produced
// from the source transcription and applies those decisions to segment
// sequences.
//
// The Resolver maps every target language to one route: identity (the source
// itself), direct (one source→target translation), or relayed (source→hub then
// hub→target). Relaying through a single hub language means a run with many
// targets installs and invokes one source→hub package plus one hub→target
// package per language instead of a separate package per source/target pair.
//
// The Engine resolves every translator a plan needs before any text is
// translated, so a missing package fails the run before caption files exist.
// The hub-language intermediate sequence is built lazily, at most once per
// run, and shared read-only by every relayed target.
package translation

// Package logging assembles structured slog loggers and formatting helpers used
// across vidsub.
//
// It owns the console/JSON handlers, centralizes level and output plumbing
// (including rotated log files), and exposes context-aware helpers so pipeline
// code can tag log lines with the run ID, the current stage, and the caption
// language being processed. A no-op logger is provided for tests and wiring
// code that cannot fail.
package logging

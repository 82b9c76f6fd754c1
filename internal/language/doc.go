// Package language maps caption language codes to the forms external tools
// expect: ISO 639-2 tags for mkvmerge and human-readable track names.
//
// The pipeline itself treats language codes as opaque and compares them by
// equality only; normalization here is applied at the container boundary.
package language

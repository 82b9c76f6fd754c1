// Package captions holds the timed-text data model shared by every pipeline
// stage and the SubRip serializer that turns a segment sequence into a caption
// file.
//
// Sequences are treated as immutable once built: stages that change text
// construct a new Sequence instead of editing one in place, which keeps every
// per-language track timing-congruent with the original transcription.
package captions

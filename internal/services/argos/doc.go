// Package argos serves translation pairs from a local Argos Translate
// installation.
//
// The first time a pair is requested the package index is refreshed and the
// pair's package is installed with argospm. Installed pairs are remembered in
// the package registry so later runs skip both steps. A whole caption sequence
// is piped through a single argos-translate process, one line per segment, so
// the model loads once per language pair rather than once per cue.
package argos

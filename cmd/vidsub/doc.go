// Package main hosts the vidsub CLI entrypoint and command graph.
//
// The root command takes a video path and runs the caption pipeline: audio
// extraction, transcription, translation into each requested language, SRT
// serialization, and muxing into a new container. Subcommands cover
// configuration scaffolding, external tool checks, the translation package
// registry, and dry-run inspection of translation routes.
//
// Keep this package thin. Behaviour lives in internal packages; commands here
// resolve configuration, build collaborators, and render results.
package main

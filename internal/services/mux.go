package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SubtitleTrack is one caption file to embed, tagged with its language code.
// Title is the human-readable track name; muxers derive one when it is empty.
type SubtitleTrack struct {
	Language string
	Path     string
	Title    string
}

// MuxRequest describes one container rewrite: the source video plus the
// caption tracks to attach, in the order they should appear.
type MuxRequest struct {
	VideoPath  string
	OutputPath string
	Tracks     []SubtitleTrack
}

// Validate checks that the request names existing inputs.
func (r MuxRequest) Validate() error {
	if strings.TrimSpace(r.VideoPath) == "" {
		return fmt.Errorf("video path is required")
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}
	if len(r.Tracks) == 0 {
		return fmt.Errorf("at least one subtitle track is required")
	}
	if _, err := os.Stat(r.VideoPath); err != nil {
		return fmt.Errorf("source video not found: %w", err)
	}
	for _, track := range r.Tracks {
		if strings.TrimSpace(track.Language) == "" {
			return fmt.Errorf("subtitle track %q has no language", track.Path)
		}
		if _, err := os.Stat(track.Path); err != nil {
			return fmt.Errorf("subtitle file not found %q: %w", track.Path, err)
		}
	}
	return nil
}

// TempOutputPath returns a hidden sibling of dest used while a tool writes.
// The extension is kept so tools that infer the container from it still work.
func TempOutputPath(dest string) string {
	dir := filepath.Dir(dest)
	base := filepath.Base(dest)
	ext := filepath.Ext(base)
	return filepath.Join(dir, ".mux-"+strings.TrimSuffix(base, ext)+".tmp"+ext)
}

// FinalizeOutput moves a completed temp file into place.
func FinalizeOutput(tmpPath, dest string) error {
	if _, err := os.Stat(tmpPath); err != nil {
		return fmt.Errorf("tool did not produce output file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

// TranscribeRequest describes one speech-to-text invocation. An empty Language
// asks the engine to detect it.
type TranscribeRequest struct {
	AudioPath   string
	Model       string
	Device      string
	ComputeType string
	Language    string
}

// ExtractRequest describes one audio extraction. Language, when set, steers
// stream selection toward a matching audio track.
type ExtractRequest struct {
	VideoPath string
	Language  string
}

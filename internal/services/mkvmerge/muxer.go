// Package mkvmerge embeds SubRip tracks into a Matroska copy of the input
// video using MKVToolNix.
package mkvmerge

import (
	"context"
	"log/slog"
	"os"
	"strings"

	langpkg "vidsub/internal/language"
	"vidsub/internal/logging"
	"vidsub/internal/services"
)

// DefaultBinary is the mkvmerge command name.
const DefaultBinary = "mkvmerge"

// Muxer embeds SRT subtitles into MKV containers using mkvmerge.
type Muxer struct {
	binary string
	logger *slog.Logger
	run    services.CommandRunner
}

// NewMuxer constructs a subtitle muxer.
func NewMuxer(binary string, logger *slog.Logger) *Muxer {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Muxer{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "mkvmerge"),
		run:    services.RunCommand,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (m *Muxer) WithCommandRunner(r services.CommandRunner) {
	if m != nil && r != nil {
		m.run = r
	}
}

// Mux writes req.OutputPath with every track attached after the source streams.
// The first track is flagged as the default subtitle.
func (m *Muxer) Mux(ctx context.Context, req services.MuxRequest) error {
	if m == nil {
		return services.Wrap(services.ErrMux, "mkvmerge", "mux", "muxer not initialized", nil)
	}
	if err := req.Validate(); err != nil {
		return services.Wrap(services.ErrMux, "mkvmerge", "mux", "invalid request", err)
	}

	tmpPath := services.TempOutputPath(req.OutputPath)
	args := BuildArgs(req, tmpPath)
	m.logger.Debug("executing mkvmerge",
		logging.String("video_path", req.VideoPath),
		logging.Int("subtitle_count", len(req.Tracks)),
	)

	// mkvmerge exits 1 for warnings; anything non-zero is treated as failure.
	if _, err := m.run(ctx, nil, m.binary, args...); err != nil {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrMux, "mkvmerge", "mux", req.VideoPath, err)
	}
	if err := services.FinalizeOutput(tmpPath, req.OutputPath); err != nil {
		return services.Wrap(services.ErrMux, "mkvmerge", "finalize", req.OutputPath, err)
	}

	m.logger.Info("subtitles muxed into MKV",
		logging.String(logging.FieldEventType, "subtitle_mux_complete"),
		logging.String("output_path", req.OutputPath),
		logging.Int("tracks_added", len(req.Tracks)),
	)
	return nil
}

// BuildArgs constructs the mkvmerge command arguments.
func BuildArgs(req services.MuxRequest, outputPath string) []string {
	args := []string{"-o", outputPath, req.VideoPath}
	for i, track := range req.Tracks {
		name := track.Title
		if strings.TrimSpace(name) == "" {
			name = langpkg.DisplayName(track.Language)
		}
		defaultFlag := "0:no"
		if i == 0 {
			defaultFlag = "0:yes"
		}
		// Flags apply to track 0 of the file that follows them.
		args = append(args,
			"--language", "0:"+track.Language,
			"--track-name", "0:"+name,
			"--default-track", defaultFlag,
			track.Path,
		)
	}
	return args
}

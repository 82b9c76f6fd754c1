package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	langpkg "vidsub/internal/language"
	"vidsub/internal/logging"
	"vidsub/internal/services"
)

// Muxer embeds SRT tracks into a copy of the input video using ffmpeg.
type Muxer struct {
	binary string
	logger *slog.Logger
	run    services.CommandRunner
}

// NewMuxer constructs an ffmpeg-backed muxer.
func NewMuxer(binary string, logger *slog.Logger) *Muxer {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Muxer{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ffmpeg-mux"),
		run:    services.RunCommand,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (m *Muxer) WithCommandRunner(r services.CommandRunner) {
	if m != nil && r != nil {
		m.run = r
	}
}

// Mux writes req.OutputPath containing the source video and audio streams
// plus one subtitle stream per track, in track order.
func (m *Muxer) Mux(ctx context.Context, req services.MuxRequest) error {
	if m == nil {
		return services.Wrap(services.ErrMux, "ffmpeg", "mux", "muxer not initialized", nil)
	}
	if err := req.Validate(); err != nil {
		return services.Wrap(services.ErrMux, "ffmpeg", "mux", "invalid request", err)
	}

	tmpPath := services.TempOutputPath(req.OutputPath)
	args := BuildMuxArgs(req, tmpPath)
	m.logger.Debug("executing ffmpeg mux",
		logging.String("video_path", req.VideoPath),
		logging.String("output_path", req.OutputPath),
		logging.Int("subtitle_count", len(req.Tracks)),
	)
	if _, err := m.run(ctx, nil, m.binary, args...); err != nil {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrMux, "ffmpeg", "mux", req.VideoPath, err)
	}
	if err := services.FinalizeOutput(tmpPath, req.OutputPath); err != nil {
		return services.Wrap(services.ErrMux, "ffmpeg", "finalize", req.OutputPath, err)
	}

	m.logger.Info("subtitles muxed into container",
		logging.String(logging.FieldEventType, "subtitle_mux_complete"),
		logging.String("output_path", req.OutputPath),
		logging.Int("tracks_added", len(req.Tracks)),
	)
	return nil
}

// SubtitleCodec picks the subtitle codec the output container can hold.
// QuickTime-family containers cannot carry SubRip and take mov_text instead.
func SubtitleCodec(outputPath string) string {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".mp4", ".m4v", ".mov":
		return "mov_text"
	default:
		return "srt"
	}
}

// BuildMuxArgs constructs the ffmpeg arguments writing to outputPath.
// Input 0 is the video; input i+1 is track i. Each subtitle stream is tagged
// with the track's language code as given.
func BuildMuxArgs(req services.MuxRequest, outputPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", req.VideoPath}
	for _, track := range req.Tracks {
		args = append(args, "-i", track.Path)
	}
	args = append(args, "-map", "0:v", "-map", "0:a")
	for i := range req.Tracks {
		args = append(args, "-map", strconv.Itoa(i+1)+":s")
	}
	args = append(args, "-c:v", "copy", "-c:a", "copy", "-c:s", SubtitleCodec(req.OutputPath))
	for i, track := range req.Tracks {
		title := track.Title
		if strings.TrimSpace(title) == "" {
			title = langpkg.DisplayName(track.Language)
		}
		args = append(args,
			fmt.Sprintf("-metadata:s:s:%d", i), "language="+track.Language,
			fmt.Sprintf("-metadata:s:s:%d", i), "title="+title,
		)
	}
	return append(args, outputPath)
}

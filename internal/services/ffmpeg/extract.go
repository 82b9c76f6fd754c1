package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vidsub/internal/logging"
	"vidsub/internal/media/audio"
	"vidsub/internal/media/ffprobe"
	"vidsub/internal/services"
)

// DefaultBinary is the ffmpeg command name.
const DefaultBinary = "ffmpeg"

// StreamProber inspects a media file's streams.
type StreamProber interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Extractor pulls the speech audio out of a video.
type Extractor struct {
	binary   string
	audioDir string
	logger   *slog.Logger
	run      services.CommandRunner
	prober   StreamProber
}

// NewExtractor constructs an extractor writing WAV files into audioDir.
func NewExtractor(binary, audioDir string, logger *slog.Logger) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Extractor{
		binary:   binary,
		audioDir: audioDir,
		logger:   logging.NewComponentLogger(logger, "ffmpeg"),
		run:      services.RunCommand,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Extractor) WithCommandRunner(r services.CommandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// WithProber enables stream inspection before extraction. Without a prober
// ffmpeg picks the audio stream itself.
func (e *Extractor) WithProber(p StreamProber) {
	if e != nil {
		e.prober = p
	}
}

// AudioPath returns the WAV path extraction writes for video.
func (e *Extractor) AudioPath(video string) string {
	stem := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	return filepath.Join(e.audioDir, stem+"-audio.wav")
}

// ExtractAudio writes the video's dialogue audio as mono 16 kHz WAV and
// returns its path.
func (e *Extractor) ExtractAudio(ctx context.Context, req services.ExtractRequest) (string, error) {
	video := strings.TrimSpace(req.VideoPath)
	if video == "" {
		return "", services.Wrap(services.ErrExtraction, "ffmpeg", "extract audio", "video path required", nil)
	}
	if _, err := os.Stat(video); err != nil {
		return "", services.Wrap(services.ErrExtraction, "ffmpeg", "extract audio", "input video not readable", err)
	}
	if err := os.MkdirAll(e.audioDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrExtraction, "ffmpeg", "ensure audio dir", e.audioDir, err)
	}

	stream, err := e.selectStream(ctx, video, req.Language)
	if err != nil {
		return "", err
	}

	dest := e.AudioPath(video)
	args := BuildExtractArgs(video, dest, stream)
	e.logger.Debug("executing ffmpeg audio extraction",
		logging.String("video_path", video),
		logging.String("audio_path", dest),
		logging.Int("audio_stream", stream),
	)
	if _, err := e.run(ctx, nil, e.binary, args...); err != nil {
		_ = os.Remove(dest)
		return "", services.Wrap(services.ErrExtraction, "ffmpeg", "extract audio", video, err)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		if err == nil {
			err = fmt.Errorf("empty output")
		}
		return "", services.Wrap(services.ErrExtraction, "ffmpeg", "verify audio", dest, err)
	}
	return dest, nil
}

// selectStream returns the audio ordinal to extract, or -1 to let ffmpeg
// choose.
func (e *Extractor) selectStream(ctx context.Context, video, lang string) (int, error) {
	if e.prober == nil {
		return -1, nil
	}
	result, err := e.prober.Inspect(ctx, video)
	if err != nil {
		return 0, services.Wrap(services.ErrExtraction, "ffmpeg", "probe streams", video, err)
	}
	sel := audio.Select(result.Streams, lang)
	if !sel.Found() {
		return 0, services.Wrap(services.ErrExtraction, "ffmpeg", "select audio", video+" has no audio stream", nil)
	}
	attrs := []logging.Attr{
		logging.String("stream", sel.Label()),
		logging.Int("audio_ordinal", sel.Ordinal),
		logging.Int("audio_streams", result.AudioStreamCount()),
	}
	if lang != "" && !sel.LanguageMatch {
		logging.WarnWithContext(e.logger, "no audio stream tagged with source language", "audio_language_unmatched",
			append(attrs,
				logging.String("language", lang),
				logging.String(logging.FieldErrorHint, "check the --from-language value or the container's track tags"),
				logging.String(logging.FieldImpact, "transcribing the best remaining stream"),
			)...,
		)
	} else {
		reason := "best dialogue candidate"
		if sel.LanguageMatch {
			reason = "language tag matches " + lang
		}
		attrs = append(attrs, logging.DecisionAttrs("audio_stream", "selected", reason)...)
		e.logger.Info("audio stream selected", logging.Args(attrs...)...)
	}
	return sel.Ordinal, nil
}

// BuildExtractArgs returns the ffmpeg arguments for a mono 16 kHz PCM WAV
// extraction with video, subtitle, and data streams disabled. A non-negative
// stream maps that audio ordinal explicitly.
func BuildExtractArgs(source, dest string, stream int) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
	}
	if stream >= 0 {
		args = append(args, "-map", fmt.Sprintf("0:a:%d", stream))
	}
	return append(args,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	)
}

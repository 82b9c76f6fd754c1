package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vidsub/internal/captions"
	"vidsub/internal/logging"
	"vidsub/internal/services"
	"vidsub/internal/translation"
)

// AudioExtractor pulls the speech audio out of a video file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, req services.ExtractRequest) (string, error)
}

// Transcriber turns an audio file into timed segments. The returned
// sequence's Language is the detected language code.
type Transcriber interface {
	Transcribe(ctx context.Context, req services.TranscribeRequest) (captions.Sequence, error)
}

// Muxer writes the output container with the caption tracks attached.
type Muxer interface {
	Mux(ctx context.Context, req services.MuxRequest) error
}

// Deps bundles the external collaborators a run calls.
type Deps struct {
	Extractor   AudioExtractor
	Transcriber Transcriber
	Provider    translation.Provider
	Muxer       Muxer
}

// Options configures the coordinator.
type Options struct {
	// SubtitlesDir receives subtitles.<lang>.srt files.
	SubtitlesDir string
	// Hub is the relay language for translations between two non-hub languages.
	Hub string
	// Concurrency bounds how many target languages translate at once.
	Concurrency int
	// OutputSuffix is appended to the input stem when no output path is given.
	OutputSuffix string
	// CleanupWorkFiles removes extracted audio once the run ends.
	CleanupWorkFiles bool
	Logger           *slog.Logger
}

// DefaultOutputSuffix names the derived output file.
const DefaultOutputSuffix = "_with_subtitles.mkv"

// Request is one run's input.
type Request struct {
	VideoPath       string
	OutputPath      string
	Model           string
	Device          string
	ComputeType     string
	SourceLanguage  string
	TargetLanguages []string
}

// Track is one written caption file.
type Track struct {
	Language string
	Path     string
	Cues     int
	Route    translation.Kind
}

// Result reports how far a run got and what it produced.
type Result struct {
	RunID          string
	State          State
	Stages         []State
	OutputPath     string
	AudioPath      string
	SourceLanguage string
	Detected       string
	Plan           translation.Plan
	Tracks         []Track
	Segments       int
	Duration       time.Duration
}

// Coordinator runs the pipeline.
type Coordinator struct {
	deps     Deps
	opts     Options
	resolver translation.Resolver
	engine   *translation.Engine
	writer   *captions.Writer
	logger   *slog.Logger
}

// New constructs a coordinator. Every collaborator is required.
func New(deps Deps, opts Options) (*Coordinator, error) {
	switch {
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: audio extractor is required")
	case deps.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case deps.Provider == nil:
		return nil, errors.New("pipeline: translation provider is required")
	case deps.Muxer == nil:
		return nil, errors.New("pipeline: muxer is required")
	}
	if strings.TrimSpace(opts.SubtitlesDir) == "" {
		return nil, errors.New("pipeline: subtitles directory is required")
	}
	if strings.TrimSpace(opts.OutputSuffix) == "" {
		opts.OutputSuffix = DefaultOutputSuffix
	}
	logger := logging.NewComponentLogger(opts.Logger, "pipeline")
	return &Coordinator{
		deps:     deps,
		opts:     opts,
		resolver: translation.NewResolver(opts.Hub),
		engine:   translation.NewEngine(deps.Provider, opts.Logger, translation.WithConcurrency(opts.Concurrency)),
		writer:   captions.NewWriter(opts.SubtitlesDir),
		logger:   logger,
	}, nil
}

// DefaultOutputPath derives the output file from the input video: same
// directory, input stem plus suffix, absolute.
func DefaultOutputPath(videoPath, suffix string) (string, error) {
	if suffix == "" {
		suffix = DefaultOutputSuffix
	}
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Abs(filepath.Join(filepath.Dir(videoPath), stem+suffix))
}

// Run executes every stage in order. On failure the returned Result has
// State FAILED and the error is a *StageError naming the failing stage.
func (c *Coordinator) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)

	result := Result{RunID: runID, State: StateStart, Stages: []State{StateStart}}
	fail := func(next State, err error) (Result, error) {
		result.State = StateFailed
		result.Duration = time.Since(started)
		logging.ErrorWithContext(logger, "run failed", "run_failure",
			logging.String(logging.FieldStage, string(next)),
			logging.String(logging.FieldErrorHint, hintFor(err)),
			logging.Error(err),
		)
		return result, &StageError{State: next, Err: err}
	}

	if err := c.validate(&req); err != nil {
		return fail(StateStart, err)
	}
	result.OutputPath = req.OutputPath
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("video_path", req.VideoPath),
		logging.String("output_path", req.OutputPath),
		logging.Strings("requested_languages", req.TargetLanguages),
	)

	unlock, err := c.lockSubtitlesDir()
	if err != nil {
		return fail(StateStart, err)
	}
	defer unlock()

	// AUDIO_EXTRACTED
	audioPath, err := stage(ctx, c, StateAudioExtracted, func(ctx context.Context) (string, error) {
		return c.deps.Extractor.ExtractAudio(ctx, services.ExtractRequest{
			VideoPath: req.VideoPath,
			Language:  req.SourceLanguage,
		})
	})
	if err != nil {
		return fail(StateAudioExtracted, err)
	}
	result.AudioPath = audioPath
	result.advance(StateAudioExtracted)
	if c.opts.CleanupWorkFiles {
		defer c.removeWorkFile(logger, audioPath)
	}

	// TRANSCRIBED
	source, err := stage(ctx, c, StateTranscribed, func(ctx context.Context) (captions.Sequence, error) {
		seq, err := c.deps.Transcriber.Transcribe(ctx, services.TranscribeRequest{
			AudioPath:   audioPath,
			Model:       req.Model,
			Device:      req.Device,
			ComputeType: req.ComputeType,
			Language:    req.SourceLanguage,
		})
		if err != nil {
			return captions.Sequence{}, err
		}
		if err := seq.Validate(); err != nil {
			return captions.Sequence{}, services.Wrap(services.ErrTranscription, "pipeline", "validate transcript", "", err)
		}
		return seq, nil
	})
	if err != nil {
		return fail(StateTranscribed, err)
	}
	result.Detected = source.Language
	result.Segments = source.Len()
	result.advance(StateTranscribed)

	// LANGUAGES_RESOLVED
	sourceLang := strings.TrimSpace(req.SourceLanguage)
	if sourceLang == "" {
		sourceLang = source.Language
	}
	if sourceLang == "" {
		return fail(StateLanguagesResolved, services.Wrap(services.ErrValidation, "pipeline", "resolve languages",
			"no source language given and none detected", nil))
	}
	source = source.WithLanguage(sourceLang)
	plan := c.resolver.Resolve(sourceLang, req.TargetLanguages)
	result.SourceLanguage = sourceLang
	result.Plan = plan
	result.advance(StateLanguagesResolved)
	c.logPlan(logger, plan, result.Detected, req.SourceLanguage != "")

	// TRANSLATED
	sequences, err := stage(ctx, c, StateTranslated, func(ctx context.Context) ([]captions.Sequence, error) {
		return c.engine.Apply(ctx, plan, source)
	})
	if err != nil {
		return fail(StateTranslated, err)
	}
	for i := range sequences {
		if !captions.TimingCongruent(sequences[i], source) {
			return fail(StateTranslated, services.Wrap(services.ErrTranslation, "pipeline", "verify timing",
				fmt.Sprintf("%s track is not timing congruent with the transcript", sequences[i].Language), nil))
		}
	}
	result.advance(StateTranslated)

	// CAPTIONS_WRITTEN
	tracks, err := stage(ctx, c, StateCaptionsWritten, func(context.Context) ([]Track, error) {
		return c.writeTracks(plan, sequences)
	})
	if err != nil {
		return fail(StateCaptionsWritten, err)
	}
	result.Tracks = tracks
	result.advance(StateCaptionsWritten)

	// MUXED
	muxReq := services.MuxRequest{VideoPath: req.VideoPath, OutputPath: req.OutputPath}
	for _, t := range tracks {
		muxReq.Tracks = append(muxReq.Tracks, services.SubtitleTrack{Language: t.Language, Path: t.Path})
	}
	if _, err := stage(ctx, c, StateMuxed, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.deps.Muxer.Mux(ctx, muxReq)
	}); err != nil {
		return fail(StateMuxed, err)
	}
	result.advance(StateMuxed)

	result.advance(StateDone)
	result.Duration = time.Since(started)
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output_path", result.OutputPath),
		logging.Int("tracks", len(result.Tracks)),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

func (r *Result) advance(s State) {
	r.State = s
	r.Stages = append(r.Stages, s)
}

// stage runs fn with stage-scoped context and start/complete logging.
func stage[T any](ctx context.Context, c *Coordinator, state State, fn func(context.Context) (T, error)) (T, error) {
	stageCtx := services.WithStage(ctx, string(state))
	logger := logging.WithContext(stageCtx, c.logger)
	start := time.Now()
	logger.Debug("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("stage_label", state.Label()),
	)
	out, err := fn(stageCtx)
	if err != nil {
		return out, err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("stage_label", state.Label()),
		logging.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (c *Coordinator) validate(req *Request) error {
	req.VideoPath = strings.TrimSpace(req.VideoPath)
	if req.VideoPath == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "validate", "video path is required", nil)
	}
	info, err := os.Stat(req.VideoPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "pipeline", "validate", "input video not readable", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "pipeline", "validate", req.VideoPath+" is a directory", nil)
	}

	if strings.TrimSpace(req.OutputPath) == "" {
		out, err := DefaultOutputPath(req.VideoPath, c.opts.OutputSuffix)
		if err != nil {
			return services.Wrap(services.ErrValidation, "pipeline", "derive output path", "", err)
		}
		req.OutputPath = out
	} else {
		out, err := filepath.Abs(strings.TrimSpace(req.OutputPath))
		if err != nil {
			return services.Wrap(services.ErrValidation, "pipeline", "resolve output path", "", err)
		}
		req.OutputPath = out
	}
	if in, err := filepath.Abs(req.VideoPath); err == nil && in == req.OutputPath {
		return services.Wrap(services.ErrValidation, "pipeline", "validate", "output path must differ from the input video", nil)
	}
	return nil
}

func (c *Coordinator) lockSubtitlesDir() (func(), error) {
	if err := os.MkdirAll(c.opts.SubtitlesDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrSerialization, "pipeline", "create subtitles dir", c.opts.SubtitlesDir, err)
	}
	lockPath := filepath.Join(c.opts.SubtitlesDir, ".vidsub.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrSerialization, "pipeline", "lock subtitles dir", lockPath, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "lock subtitles dir",
			"another vidsub run is writing captions in "+c.opts.SubtitlesDir, nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("failed to release subtitles lock",
				logging.String("lock_path", lockPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldErrorHint, "remove the lock file if no run is active"),
				logging.String(logging.FieldImpact, "next run may report the directory as busy"),
			)
		}
	}, nil
}

func (c *Coordinator) writeTracks(plan translation.Plan, sequences []captions.Sequence) ([]Track, error) {
	tracks := make([]Track, 0, len(sequences))
	for i, seq := range sequences {
		path, err := c.writer.WriteTrack(seq)
		if err != nil {
			return nil, err
		}
		cues, err := captions.CountCues(path)
		if err != nil {
			return nil, services.Wrap(services.ErrSerialization, "pipeline", "verify track", path, err)
		}
		if cues != seq.Len() {
			return nil, services.Wrap(services.ErrSerialization, "pipeline", "verify track",
				fmt.Sprintf("%s has %d cues, expected %d", path, cues, seq.Len()), nil)
		}
		tracks = append(tracks, Track{
			Language: seq.Language,
			Path:     path,
			Cues:     cues,
			Route:    plan.Routes[i].Kind,
		})
	}
	return tracks, nil
}

func (c *Coordinator) logPlan(logger *slog.Logger, plan translation.Plan, detected string, explicitSource bool) {
	reason := "detected by transcription"
	if explicitSource {
		reason = "given on the command line"
	}
	logger.Info("caption languages resolved",
		logging.Args(logging.DecisionAttrs("source_language", plan.Source, reason)...)...,
	)
	if explicitSource && detected != "" && detected != plan.Source {
		logging.WarnWithContext(logger, "detected language differs from requested source", "source_language_mismatch",
			logging.String("detected_language", detected),
			logging.String("source_language", plan.Source),
			logging.String(logging.FieldImpact, "captions are translated from the requested language"),
		)
	}
	for _, route := range plan.Routes {
		logger.Debug("translation route",
			logging.String(logging.FieldLanguage, route.Target),
			logging.String("route", route.Kind.String()),
			logging.Int("legs", len(route.Legs)),
		)
	}
	logger.Info("translation plan",
		logging.String(logging.FieldEventType, "translation_plan"),
		logging.Strings("targets", plan.Targets()),
		logging.Bool("relay", plan.NeedsRelay()),
		logging.String("hub", plan.Hub),
	)
}

func (c *Coordinator) removeWorkFile(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "failed to remove work file", "cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "extracted audio remains in the work directory"),
		)
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrPackageNotFound):
		if pair, ok := translation.MissingPair(err); ok {
			return "no translation package for " + pair.String() + "; pick another target or hub language"
		}
		return "install the missing translation package"
	case errors.Is(err, services.ErrExtraction):
		return "check that the input has an audio stream and ffmpeg is installed"
	case errors.Is(err, services.ErrTranscription):
		return "check uvx/whisperx and the model, device, and compute type settings"
	case errors.Is(err, services.ErrMux):
		return "check the output directory and the mux tool"
	case errors.Is(err, services.ErrSerialization):
		return "check that the work directory is writable"
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return "check the command arguments and configuration"
	default:
		return "see error detail"
	}
}

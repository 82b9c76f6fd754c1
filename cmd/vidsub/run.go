package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidsub/internal/config"
	"vidsub/internal/language"
	"vidsub/internal/pipeline"
	"vidsub/internal/preflight"
	"vidsub/internal/services"
)

type runFlags struct {
	output      string
	model       string
	device      string
	computeType string
	source      string
	targets     []string
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "Output video path (default: <input>_with_subtitles.mkv)")
	flags.StringVarP(&f.model, "model", "m", "", "WhisperX model override")
	flags.StringVarP(&f.device, "device", "d", "", "Compute device override (cuda or cpu)")
	flags.StringVar(&f.computeType, "compute-type", "", "Inference precision override (float16, int8, float32)")
	registerLanguageFlags(cmd, &f.source, &f.targets)
}

func registerLanguageFlags(cmd *cobra.Command, source *string, targets *[]string) {
	cmd.Flags().StringVarP(source, "from-language", "f", "", "Source language code (default: detected)")
	cmd.Flags().StringArrayVarP(targets, "to-language", "t", nil, "Target language code; repeat for several (default: source only)")
}

// request applies flag overrides on top of the configured transcription settings.
func (f runFlags) request(cfg *config.Config, video string) pipeline.Request {
	req := pipeline.Request{
		VideoPath:       video,
		OutputPath:      strings.TrimSpace(f.output),
		Model:           cfg.Transcription.Model,
		Device:          cfg.Transcription.Device,
		ComputeType:     cfg.Transcription.ComputeType,
		SourceLanguage:  normalizeLanguage(f.source),
		TargetLanguages: normalizeLanguages(f.targets),
	}
	if v := strings.TrimSpace(f.model); v != "" {
		req.Model = v
	}
	if v := strings.TrimSpace(f.device); v != "" {
		req.Device = strings.ToLower(v)
	}
	if v := strings.TrimSpace(f.computeType); v != "" {
		req.ComputeType = strings.ToLower(v)
	}
	return req
}

func normalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func normalizeLanguages(codes []string) []string {
	var out []string
	for _, raw := range codes {
		for _, code := range strings.Split(raw, ",") {
			if code = normalizeLanguage(code); code != "" {
				out = append(out, code)
			}
		}
	}
	return out
}

func runPipeline(cmd *cobra.Command, ctx *commandContext, video string, flags runFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	if err := preflight.Err(preflight.RunAll(cmd.Context(), cfg)); err != nil {
		return err
	}

	rt, err := buildRuntimeDeps(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	coordinator, err := pipeline.New(rt.Deps, pipeline.Options{
		SubtitlesDir:     cfg.SubtitlesDir(),
		Hub:              cfg.Translation.Hub,
		Concurrency:      cfg.Translation.Concurrency,
		OutputSuffix:     cfg.Mux.OutputSuffix,
		CleanupWorkFiles: cfg.Mux.CleanupWorkFiles,
		Logger:           logger,
	})
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "build pipeline", "", err)
	}

	result, err := coordinator.Run(cmd.Context(), flags.request(cfg, video))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderRunSummary(out, result, shouldColorize(out))
	return nil
}

func renderRunSummary(w io.Writer, result pipeline.Result, colorize bool) {
	fmt.Fprintln(w, renderStatusLine("Output", statusOK, result.OutputPath, colorize))
	source := result.SourceLanguage
	if result.Detected != "" && result.Detected != result.SourceLanguage {
		source = fmt.Sprintf("%s (detected %s)", result.SourceLanguage, result.Detected)
	}
	fmt.Fprintln(w, renderStatusLine("Source language", statusInfo, source, colorize))
	fmt.Fprintln(w, renderStatusLine("Segments", statusInfo, strconv.Itoa(result.Segments), colorize))
	fmt.Fprintln(w, renderStatusLine("Run", statusInfo,
		fmt.Sprintf("%s in %s", result.RunID, result.Duration.Round(time.Second)), colorize))
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(result.Tracks))
	for _, track := range result.Tracks {
		rows = append(rows, []string{
			track.Language,
			language.DisplayName(track.Language),
			track.Route.String(),
			strconv.Itoa(track.Cues),
			track.Path,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Language", "Name", "Route", "Cues", "Caption File"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

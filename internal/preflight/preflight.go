package preflight

import (
	"context"
	"fmt"
	"strings"

	"vidsub/internal/config"
	"vidsub/internal/deps"
	"vidsub/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Path
		}
		results = append(results, result)
	}

	if cfg.Translation.Backend == config.BackendLibreTranslate {
		results = append(results, CheckLibreTranslate(ctx, cfg.LibreTranslate))
	}
	return results
}

// Err folds failed results into a configuration error, or nil when all passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(failed, "; "), nil)
}

// CheckSystemDeps evaluates the external commands the configured backends use.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     config.FFmpegBinary,
			Description: "Required for audio extraction and muxing",
		},
		{
			Name:        "FFprobe",
			Command:     config.FFprobeBinary,
			Description: "Required for choosing the dialogue audio stream",
		},
		{
			Name:        "uvx",
			Command:     config.UVXBinary,
			Description: "Required for WhisperX-driven transcription",
		},
	}
	if cfg.Mux.Tool == config.MuxToolMkvmerge {
		requirements = append(requirements, deps.Requirement{
			Name:        "mkvmerge",
			Command:     config.MkvmergeBinary,
			Description: "Required for muxing subtitles into MKV containers",
		})
	}
	if cfg.Translation.Backend == config.BackendArgos {
		requirements = append(requirements,
			deps.Requirement{
				Name:        "argospm",
				Command:     config.ArgospmBinary,
				Description: "Required for installing translation packages",
			},
			deps.Requirement{
				Name:        "argos-translate",
				Command:     config.ArgosTranslateBinary,
				Description: "Required for translating captions",
			},
		)
	}
	return deps.CheckBinaries(requirements)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"vidsub/internal/config"
	"vidsub/internal/pipeline"
	"vidsub/internal/services"
	"vidsub/internal/testsupport"
	"vidsub/internal/translation"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with exit code %d", want)
	}
	if got := services.ExitCode(err); got != want {
		t.Fatalf("exit code = %d, want %d (err: %v)", got, want, err)
	}
}

func TestPlanCommandShowsRelayRoutes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.WriteConfigFile(t, cfg)

	out, _, err := runCLI(t, []string{"plan", "-f", "es", "-t", "es", "-t", "en", "-t", "fr,de"}, path)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, want := range []string{"identity", "direct", "relayed", "es->en, en->fr", "French", "Relay: es->en"} {
		requireContains(t, out, want)
	}
}

func TestPlanCommandSourceIsHub(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.WriteConfigFile(t, cfg)

	out, _, err := runCLI(t, []string{"plan", "-f", "en", "-t", "fr"}, path)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "en->fr")
	if strings.Contains(out, "relayed") || strings.Contains(out, "Relay:") {
		t.Fatalf("source equal to hub should not relay:\n%s", out)
	}
}

func TestPlanCommandRequiresSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.WriteConfigFile(t, cfg)

	_, _, err := runCLI(t, []string{"plan", "-t", "fr"}, path)
	requireExitCode(t, err, 2)
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendLibreTranslate))
	path := testsupport.WriteConfigFile(t, cfg)

	out, _, err := runCLI(t, []string{"config", "show"}, path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[translation]")
	requireContains(t, out, config.BackendLibreTranslate)
	requireContains(t, out, cfg.Paths.WorkDir)
}

func TestConfigValidateReportsFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.WriteConfigFile(t, cfg)

	out, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid: "+path)
}

func TestInvalidConfigExitsWithConfigurationCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[translation]\nbackend = \"carrier-pigeon\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"plan", "-f", "es"}, path)
	requireExitCode(t, err, 2)
}

func TestDepsReportsMissingTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEmptyPath())
	path := testsupport.WriteConfigFile(t, cfg)

	out, _, err := runCLI(t, []string{"deps"}, path)
	requireExitCode(t, err, 2)
	requireContains(t, out, "ffmpeg")
	requireContains(t, out, "argos-translate")
	requireContains(t, out, "not found")
}

func TestDepsFollowsConfiguredTools(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithBackend(config.BackendLibreTranslate),
		testsupport.WithMuxTool(config.MuxToolMkvmerge),
		testsupport.WithStubbedBinaries(),
	)
	path := testsupport.WriteConfigFile(t, cfg)

	out, _, err := runCLI(t, []string{"deps"}, path)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "mkvmerge")
	if strings.Contains(out, "argospm") {
		t.Fatalf("libretranslate backend should not require argospm:\n%s", out)
	}
}

func TestPackagesListAndForget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.WriteConfigFile(t, cfg)

	store := testsupport.MustOpenPackageDB(t, cfg)
	if err := store.Record(context.Background(), "argos", "es", "en"); err != nil {
		t.Fatalf("record: %v", err)
	}

	out, _, err := runCLI(t, []string{"packages"}, path)
	if err != nil {
		t.Fatalf("packages: %v", err)
	}
	requireContains(t, out, "es -> en")

	out, _, err = runCLI(t, []string{"packages", "forget", "ES", "en"}, path)
	if err != nil {
		t.Fatalf("packages forget: %v", err)
	}
	requireContains(t, out, "Forgot argos package es -> en")

	out, _, err = runCLI(t, []string{"packages"}, path)
	if err != nil {
		t.Fatalf("packages: %v", err)
	}
	requireContains(t, out, "No translation packages recorded")
}

func TestRunRejectsMissingVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	path := testsupport.WriteConfigFile(t, cfg)

	_, _, err := runCLI(t, []string{filepath.Join(testsupport.BaseDir(cfg), "missing.mkv"), "-t", "fr"}, path)
	requireExitCode(t, err, 2)

	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) || stageErr.State != pipeline.StateStart {
		t.Fatalf("expected start-stage failure, got %v", err)
	}
}

func TestRunFailsPreflightWithoutTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEmptyPath())
	path := testsupport.WriteConfigFile(t, cfg)
	video := filepath.Join(testsupport.BaseDir(cfg), "movie.mkv")
	testsupport.WriteFile(t, video, 64)

	_, _, err := runCLI(t, []string{video}, path)
	requireExitCode(t, err, 2)
	requireContains(t, err.Error(), "preflight")
}

func TestUnknownFlagExitsWithValidationCode(t *testing.T) {
	_, _, err := runCLI(t, []string{"config", "init", "--bogus"}, "")
	requireExitCode(t, err, 2)
}

func TestRunFlagsRequestOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	flags := runFlags{
		output:  " out.mkv ",
		model:   "small",
		device:  "CPU",
		source:  " ES ",
		targets: []string{"fr,de", " EN ", ""},
	}
	req := flags.request(cfg, "movie.mkv")

	if req.Model != "small" || req.Device != "cpu" {
		t.Fatalf("overrides not applied: %+v", req)
	}
	if req.ComputeType != cfg.Transcription.ComputeType {
		t.Fatalf("compute type = %q, want config value %q", req.ComputeType, cfg.Transcription.ComputeType)
	}
	if req.SourceLanguage != "es" || req.OutputPath != "out.mkv" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if want := []string{"fr", "de", "en"}; !reflect.DeepEqual(req.TargetLanguages, want) {
		t.Fatalf("targets = %v, want %v", req.TargetLanguages, want)
	}
}

func TestRenderRunSummary(t *testing.T) {
	var buf bytes.Buffer
	renderRunSummary(&buf, pipeline.Result{
		RunID:          "run-1",
		OutputPath:     "/videos/movie_with_subtitles.mkv",
		SourceLanguage: "es",
		Detected:       "pt",
		Segments:       12,
		Duration:       3 * time.Second,
		Tracks: []pipeline.Track{
			{Language: "es", Path: "/work/subtitles/subtitles.es.srt", Cues: 12, Route: translation.Identity},
			{Language: "fr", Path: "/work/subtitles/subtitles.fr.srt", Cues: 12, Route: translation.Relayed},
		},
	}, false)

	out := buf.String()
	for _, want := range []string{"/videos/movie_with_subtitles.mkv", "es (detected pt)", "run-1 in 3s", "French", "relayed", "subtitles.fr.srt"} {
		requireContains(t, out, want)
	}
	if strings.Contains(out, ansiReset) {
		t.Fatal("expected no color codes when colorize is false")
	}
}

func TestRenderStatusLineColor(t *testing.T) {
	line := renderStatusLine("Output", statusOK, "done", true)
	if !strings.HasPrefix(line, "Output:") || !strings.Contains(line, ansiGreen+"[OK]"+ansiReset) {
		t.Fatalf("unexpected status line %q", line)
	}
}

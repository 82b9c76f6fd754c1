package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidsub/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, path, exists, err := config.Load(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config to report exists=false (path %s)", path)
	}
	if cfg.Translation.Hub != "en" {
		t.Fatalf("expected default hub en, got %q", cfg.Translation.Hub)
	}
	if cfg.Translation.Backend != config.BackendArgos {
		t.Fatalf("expected argos backend, got %q", cfg.Translation.Backend)
	}
	if cfg.Transcription.Model != "large-v2" || cfg.Transcription.Device != "cuda" || cfg.Transcription.ComputeType != "float16" {
		t.Fatalf("unexpected transcription defaults: %+v", cfg.Transcription)
	}
	wantWork := filepath.Join(home, ".local", "share", "vidsub", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("expected work dir %s, got %s", wantWork, cfg.Paths.WorkDir)
	}
	if cfg.SubtitlesDir() != filepath.Join(wantWork, "subtitles") {
		t.Fatalf("unexpected subtitles dir %s", cfg.SubtitlesDir())
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LIBRETRANSLATE_API_KEY", "secret")

	path := filepath.Join(home, "vidsub.toml")
	content := `
[paths]
work_dir = "~/scratch"

[translation]
backend = "LibreTranslate"
hub = "fr"
concurrency = 3

[libretranslate]
url = "https://translate.example.com/"

[mux]
tool = "MKVMERGE"

[logging]
level = "DEBUG"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Paths.WorkDir != filepath.Join(home, "scratch") {
		t.Fatalf("expected expanded work dir, got %s", cfg.Paths.WorkDir)
	}
	if cfg.Translation.Backend != config.BackendLibreTranslate || cfg.Translation.Hub != "fr" || cfg.Translation.Concurrency != 3 {
		t.Fatalf("unexpected translation config: %+v", cfg.Translation)
	}
	if cfg.LibreTranslate.URL != "https://translate.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.LibreTranslate.URL)
	}
	if cfg.LibreTranslate.APIKey != "secret" {
		t.Fatalf("expected api key from environment, got %q", cfg.LibreTranslate.APIKey)
	}
	if cfg.Mux.Tool != config.MuxToolMkvmerge {
		t.Fatalf("expected mkvmerge, got %q", cfg.Mux.Tool)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cases := map[string]string{
		"backend":     "[translation]\nbackend = \"google\"\n",
		"mux tool":    "[mux]\ntool = \"handbrake\"\n",
		"log format":  "[logging]\nformat = \"xml\"\n",
		"unknown key": "[translation]\npivot = \"en\"\n",
		"libre url":   "[translation]\nbackend = \"libretranslate\"\n[libretranslate]\nurl = \"not a url\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestSampleConfigLoads(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "sample", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	defaults := config.Default()
	if cfg.Translation.Hub != defaults.Translation.Hub {
		t.Fatalf("sample changed hub: %q", cfg.Translation.Hub)
	}
}

func TestRequiredBinaries(t *testing.T) {
	cfg := config.Default()
	bins := strings.Join(cfg.RequiredBinaries(), ",")
	if bins != "ffmpeg,ffprobe,uvx,argospm,argos-translate" {
		t.Fatalf("unexpected default binaries %s", bins)
	}

	cfg.Mux.Tool = config.MuxToolMkvmerge
	cfg.Translation.Backend = config.BackendLibreTranslate
	bins = strings.Join(cfg.RequiredBinaries(), ",")
	if bins != "ffmpeg,ffprobe,uvx,mkvmerge" {
		t.Fatalf("unexpected binaries %s", bins)
	}
}

func TestEncodeRoundTripsThroughLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.Default()
	cfg.Translation.Hub = "de"
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	path := filepath.Join(home, "encoded.toml")
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write encoded: %v", err)
	}
	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load encoded config: %v", err)
	}
	if loaded.Translation.Hub != "de" {
		t.Fatalf("expected hub de, got %q", loaded.Translation.Hub)
	}
}

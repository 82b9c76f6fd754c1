package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	PackageDB string `toml:"package_db"`
}

// Transcription contains speech-to-text settings.
type Transcription struct {
	Model       string `toml:"model"`
	Device      string `toml:"device"`
	ComputeType string `toml:"compute_type"`
	VADMethod   string `toml:"vad_method"`
	BatchSize   int    `toml:"batch_size"`
}

// Translation selects the translation backend and scheduling behaviour.
type Translation struct {
	// Backend is "argos" (local argos-translate) or "libretranslate".
	Backend string `toml:"backend"`
	// Hub is the pivot language used to relay translations between two
	// non-hub languages.
	Hub string `toml:"hub"`
	// Concurrency bounds how many target languages translate at once.
	Concurrency int `toml:"concurrency"`
}

// LibreTranslate contains HTTP backend settings.
type LibreTranslate struct {
	URL               string  `toml:"url"`
	APIKey            string  `toml:"api_key"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Mux contains output container settings.
type Mux struct {
	// Tool is "ffmpeg" or "mkvmerge".
	Tool             string `toml:"tool"`
	OutputSuffix     string `toml:"output_suffix"`
	CleanupWorkFiles bool   `toml:"cleanup_work_files"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format    string `toml:"format"`
	Level     string `toml:"level"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// Config encapsulates all configuration values for vidsub.
//
// Configuration sections by subsystem:
//   - Paths: work, log, and package registry locations
//   - Transcription: WhisperX model, device, and precision
//   - Translation: backend selection, hub language, and concurrency
//   - LibreTranslate: HTTP backend endpoint and rate limit
//   - Mux: output container tool and naming
//   - Logging: log format, level, and rotation
type Config struct {
	Paths          Paths          `toml:"paths"`
	Transcription  Transcription  `toml:"transcription"`
	Translation    Translation    `toml:"translation"`
	LibreTranslate LibreTranslate `toml:"libretranslate"`
	Mux            Mux            `toml:"mux"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. The boolean reports whether a file was found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work and log directories plus the parent of
// the package registry.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, filepath.Dir(c.Paths.PackageDB)} {
		if strings.TrimSpace(dir) == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AudioDir is where extracted audio streams are written.
func (c *Config) AudioDir() string {
	return filepath.Join(c.Paths.WorkDir, "audio")
}

// SubtitlesDir is the fixed directory caption files are written to.
func (c *Config) SubtitlesDir() string {
	return filepath.Join(c.Paths.WorkDir, "subtitles")
}

// TranscriptsDir holds raw speech-to-text output.
func (c *Config) TranscriptsDir() string {
	return filepath.Join(c.Paths.WorkDir, "transcripts")
}

// LogFile returns the rotating log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.Paths.LogDir, "vidsub.log")
}

// RequiredBinaries lists the external commands the configured backends invoke.
func (c *Config) RequiredBinaries() []string {
	bins := []string{FFmpegBinary, FFprobeBinary, UVXBinary}
	if c.Mux.Tool == MuxToolMkvmerge {
		bins = append(bins, MkvmergeBinary)
	}
	if c.Translation.Backend == BackendArgos {
		bins = append(bins, ArgospmBinary, ArgosTranslateBinary)
	}
	return bins
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

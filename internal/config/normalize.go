package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeTranslation()
	c.normalizeLibreTranslate()
	c.normalizeMux()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PackageDB) == "" {
		c.Paths.PackageDB = defaultPackageDB
	}
	if c.Paths.PackageDB, err = expandPath(c.Paths.PackageDB); err != nil {
		return fmt.Errorf("paths.package_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultModel
	}
	c.Transcription.Device = strings.ToLower(strings.TrimSpace(c.Transcription.Device))
	if c.Transcription.Device == "" {
		c.Transcription.Device = defaultDevice
	}
	c.Transcription.ComputeType = strings.ToLower(strings.TrimSpace(c.Transcription.ComputeType))
	if c.Transcription.ComputeType == "" {
		c.Transcription.ComputeType = defaultComputeType
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	if c.Transcription.BatchSize <= 0 {
		c.Transcription.BatchSize = defaultBatchSize
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.Backend = strings.ToLower(strings.TrimSpace(c.Translation.Backend))
	if c.Translation.Backend == "" {
		c.Translation.Backend = BackendArgos
	}
	c.Translation.Hub = strings.TrimSpace(c.Translation.Hub)
	if c.Translation.Hub == "" {
		c.Translation.Hub = defaultHub
	}
	if c.Translation.Concurrency <= 0 {
		c.Translation.Concurrency = 1
	}
}

func (c *Config) normalizeLibreTranslate() {
	if c.LibreTranslate.APIKey == "" {
		if value, ok := os.LookupEnv("LIBRETRANSLATE_API_KEY"); ok {
			c.LibreTranslate.APIKey = strings.TrimSpace(value)
		}
	}
	c.LibreTranslate.URL = strings.TrimRight(strings.TrimSpace(c.LibreTranslate.URL), "/")
	if c.LibreTranslate.URL == "" {
		c.LibreTranslate.URL = defaultLibreURL
	}
	if c.LibreTranslate.TimeoutSeconds <= 0 {
		c.LibreTranslate.TimeoutSeconds = defaultLibreTimeout
	}
}

func (c *Config) normalizeMux() {
	c.Mux.Tool = strings.ToLower(strings.TrimSpace(c.Mux.Tool))
	if c.Mux.Tool == "" {
		c.Mux.Tool = MuxToolFFmpeg
	}
	if strings.TrimSpace(c.Mux.OutputSuffix) == "" {
		c.Mux.OutputSuffix = defaultOutputSuffix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSize
	}
	if c.Logging.MaxFiles <= 0 {
		c.Logging.MaxFiles = defaultLogMaxFiles
	}
}

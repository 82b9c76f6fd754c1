package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vidsub/internal/config"
	"vidsub/internal/logging"
	"vidsub/internal/media/ffprobe"
	"vidsub/internal/packagedb"
	"vidsub/internal/pipeline"
	"vidsub/internal/services"
	"vidsub/internal/services/argos"
	"vidsub/internal/services/ffmpeg"
	"vidsub/internal/services/libretranslate"
	"vidsub/internal/services/mkvmerge"
	"vidsub/internal/services/whisperx"
	"vidsub/internal/translation"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	verboseFlag  *bool

	configOnce   sync.Once
	config       *config.Config
	configSource string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		verboseFlag:  verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", "", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "prepare directories", "", err)
			return
		}
		c.config = cfg
		c.configSource = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel(cfg *config.Config) string {
	if c.verboseFlag != nil && *c.verboseFlag {
		return "debug"
	}
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		return strings.TrimSpace(*c.logLevelFlag)
	}
	return cfg.Logging.Level
}

// ensureLogger builds the run logger: console or JSON on stderr plus a
// rotated file under the configured log directory.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       c.logLevel(cfg),
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stderr", cfg.LogFile()},
			Rotation: logging.Rotation{
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxFiles,
			},
		})
		if err != nil {
			c.loggerErr = services.Wrap(services.ErrConfiguration, "cli", "init logging", "", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// runtimeDeps holds the collaborators built for one pipeline run.
type runtimeDeps struct {
	pipeline.Deps
	closers []func() error
}

func (r *runtimeDeps) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

func buildRuntimeDeps(cfg *config.Config, logger *slog.Logger) (*runtimeDeps, error) {
	rt := &runtimeDeps{}
	extractor := ffmpeg.NewExtractor(config.FFmpegBinary, cfg.AudioDir(), logger)
	extractor.WithProber(ffprobe.NewProber(config.FFprobeBinary))
	rt.Extractor = extractor
	rt.Transcriber = whisperx.NewService(whisperx.Config{
		Model:       cfg.Transcription.Model,
		Device:      cfg.Transcription.Device,
		ComputeType: cfg.Transcription.ComputeType,
		VADMethod:   cfg.Transcription.VADMethod,
		BatchSize:   cfg.Transcription.BatchSize,
		OutputDir:   cfg.TranscriptsDir(),
	}, logger)

	provider, closeProvider, err := buildProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.Provider = provider
	if closeProvider != nil {
		rt.closers = append(rt.closers, closeProvider)
	}

	switch cfg.Mux.Tool {
	case config.MuxToolMkvmerge:
		rt.Muxer = mkvmerge.NewMuxer(config.MkvmergeBinary, logger)
	default:
		rt.Muxer = ffmpeg.NewMuxer(config.FFmpegBinary, logger)
	}
	return rt, nil
}

func buildProvider(cfg *config.Config, logger *slog.Logger) (translation.Provider, func() error, error) {
	switch cfg.Translation.Backend {
	case config.BackendLibreTranslate:
		client := libretranslate.NewClient(libretranslate.Config{
			BaseURL:           cfg.LibreTranslate.URL,
			APIKey:            cfg.LibreTranslate.APIKey,
			RequestsPerSecond: cfg.LibreTranslate.RequestsPerSecond,
			Timeout:           time.Duration(cfg.LibreTranslate.TimeoutSeconds) * time.Second,
		}, libretranslate.WithLogger(logger))
		return client, nil, nil
	case config.BackendArgos:
		store, err := packagedb.Open(cfg.Paths.PackageDB)
		if err != nil {
			return nil, nil, services.Wrap(services.ErrConfiguration, "cli", "open package registry", cfg.Paths.PackageDB, err)
		}
		return argos.NewProvider(store, logger), store.Close, nil
	default:
		return nil, nil, services.Wrap(services.ErrConfiguration, "cli", "select backend",
			fmt.Sprintf("unknown translation backend %q", cfg.Translation.Backend), nil)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateLibreTranslate(); err != nil {
		return err
	}
	if err := c.validateMux(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranslation() error {
	switch c.Translation.Backend {
	case BackendArgos, BackendLibreTranslate:
	default:
		return fmt.Errorf("translation.backend must be %q or %q, got %q", BackendArgos, BackendLibreTranslate, c.Translation.Backend)
	}
	if c.Translation.Hub == "" {
		return errors.New("translation.hub must be set")
	}
	if c.Translation.Concurrency < 1 {
		return errors.New("translation.concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateLibreTranslate() error {
	if c.Translation.Backend != BackendLibreTranslate {
		return nil
	}
	parsed, err := url.Parse(c.LibreTranslate.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("libretranslate.url must be an absolute URL, got %q", c.LibreTranslate.URL)
	}
	if c.LibreTranslate.RequestsPerSecond < 0 {
		return errors.New("libretranslate.requests_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validateMux() error {
	switch c.Mux.Tool {
	case MuxToolFFmpeg, MuxToolMkvmerge:
		return nil
	default:
		return fmt.Errorf("mux.tool must be %q or %q, got %q", MuxToolFFmpeg, MuxToolMkvmerge, c.Mux.Tool)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

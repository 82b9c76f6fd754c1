package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"vidsub/internal/logging"
	"vidsub/internal/translation"
)

// BackendName identifies LibreTranslate in errors and the package registry.
const BackendName = "libretranslate"

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings required to talk to LibreTranslate.
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client wraps the LibreTranslate REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu        sync.Mutex
	languages map[string]map[string]bool
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "libretranslate")
	}
}

// NewClient constructs a LibreTranslate client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	client := &Client{
		cfg: Config{
			BaseURL:           strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:            strings.TrimSpace(cfg.APIKey),
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           timeout,
		},
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logging.NewComponentLogger(nil, "libretranslate"),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "http://127.0.0.1:5000"
	}
	return client
}

// Translator returns a function translating text for pair, or a
// *translation.PackageNotFoundError when the server does not list it.
func (c *Client) Translator(ctx context.Context, pair translation.Pair) (translation.TranslateFunc, error) {
	languages, err := c.Languages(ctx)
	if err != nil {
		return nil, err
	}
	if !languages[pair.Source][pair.Target] {
		return nil, &translation.PackageNotFoundError{Pair: pair, Backend: BackendName}
	}
	return func(ctx context.Context, text string) (string, error) {
		return c.Translate(ctx, pair, text)
	}, nil
}

// Languages returns the server's supported pairs as source → set of targets.
// The result is fetched once and cached.
func (c *Client) Languages(ctx context.Context) (map[string]map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.languages != nil {
		return c.languages, nil
	}

	endpoint, err := c.endpoint("languages")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("libretranslate languages: build request: %w", err)
	}
	var payload []languageEntry
	if err := c.do(req, &payload); err != nil {
		return nil, fmt.Errorf("libretranslate languages: %w", err)
	}

	languages := make(map[string]map[string]bool, len(payload))
	for _, entry := range payload {
		code := strings.ToLower(strings.TrimSpace(entry.Code))
		if code == "" {
			continue
		}
		targets := make(map[string]bool, len(entry.Targets))
		for _, t := range entry.Targets {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" && t != code {
				targets[t] = true
			}
		}
		languages[code] = targets
	}
	c.logger.Debug("libretranslate languages loaded", logging.Int("languages", len(languages)))
	c.languages = languages
	return languages, nil
}

// Translate sends one text for translation, waiting on the rate limiter first.
func (c *Client) Translate(ctx context.Context, pair translation.Pair, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("libretranslate translate: rate limiter: %w", err)
	}

	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: pair.Source,
		Target: pair.Target,
		Format: "text",
		APIKey: c.cfg.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("libretranslate translate: encode request: %w", err)
	}
	endpoint, err := c.endpoint("translate")
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("libretranslate translate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var payload translateResponse
	if err := c.do(req, &payload); err != nil {
		return "", fmt.Errorf("libretranslate translate %s: %w", pair, err)
	}
	return strings.TrimSpace(payload.TranslatedText), nil
}

func (c *Client) endpoint(path string) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("libretranslate: invalid base url %q: %w", c.cfg.BaseURL, err)
	}
	return base.JoinPath(path).String(), nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && strings.TrimSpace(apiErr.Error) != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(apiErr.Error))
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// HealthCheck verifies the server answers the languages endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	languages, err := c.Languages(ctx)
	if err != nil {
		return err
	}
	if len(languages) == 0 {
		return errors.New("libretranslate health: server lists no languages")
	}
	return nil
}

type languageEntry struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

type errorResponse struct {
	Error string `json:"error"`
}

package argos

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"vidsub/internal/logging"
	"vidsub/internal/services"
	"vidsub/internal/translation"
)

// BackendName identifies argos in the package registry.
const BackendName = "argos"

// Command names.
const (
	PackageManagerCommand = "argospm"
	TranslateCommand      = "argos-translate"
)

// Registry remembers which pairs are installed.
type Registry interface {
	Has(ctx context.Context, backend, source, target string) (bool, error)
	Record(ctx context.Context, backend, source, target string) error
}

// Provider hands out argos-backed translators.
type Provider struct {
	registry Registry
	logger   *slog.Logger
	run      services.CommandRunner

	mu           sync.Mutex
	indexUpdated bool
	ready        map[translation.Pair]bool
}

// NewProvider constructs a provider. registry may be nil, in which case every
// run re-checks the package index.
func NewProvider(registry Registry, logger *slog.Logger) *Provider {
	return &Provider{
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "argos"),
		run:      services.RunCommand,
		ready:    make(map[translation.Pair]bool),
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (p *Provider) WithCommandRunner(r services.CommandRunner) {
	if p != nil && r != nil {
		p.run = r
	}
}

// Translator ensures the pair's package is installed and returns a function
// translating text through it.
func (p *Provider) Translator(ctx context.Context, pair translation.Pair) (translation.TranslateFunc, error) {
	if err := p.ensureInstalled(ctx, pair); err != nil {
		return nil, err
	}
	return func(ctx context.Context, text string) (string, error) {
		return p.translate(ctx, pair, text)
	}, nil
}

// BatchTranslator ensures the pair's package is installed and returns a
// function translating many texts through one argos-translate process. Argos
// translates each input line as its own paragraph, so one line is sent per
// non-blank text and the output is read back line by line.
func (p *Provider) BatchTranslator(ctx context.Context, pair translation.Pair) (translation.BatchTranslateFunc, error) {
	if err := p.ensureInstalled(ctx, pair); err != nil {
		return nil, err
	}
	return func(ctx context.Context, texts []string) ([]string, error) {
		return p.translateBatch(ctx, pair, texts)
	}, nil
}

func (p *Provider) ensureInstalled(ctx context.Context, pair translation.Pair) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready[pair] {
		return nil
	}
	if p.registry != nil {
		has, err := p.registry.Has(ctx, BackendName, pair.Source, pair.Target)
		if err != nil {
			p.logger.Warn("package registry lookup failed; checking index",
				logging.String("pair", pair.String()),
				logging.Error(err),
				logging.String(logging.FieldEventType, "package_registry_lookup_failed"),
				logging.String(logging.FieldErrorHint, "delete the package registry file if it is corrupt"),
				logging.String(logging.FieldImpact, "package index is refreshed for this pair"),
			)
		} else if has {
			p.ready[pair] = true
			return nil
		}
	}

	if !p.indexUpdated {
		if _, err := p.run(ctx, nil, PackageManagerCommand, "update"); err != nil {
			return services.Wrap(services.ErrTranslation, "argos", "update package index", "", err)
		}
		p.indexUpdated = true
	}

	name := PackageName(pair)
	out, err := p.run(ctx, nil, PackageManagerCommand, "search", "--from-lang", pair.Source, "--to-lang", pair.Target)
	if err != nil {
		return services.Wrap(services.ErrTranslation, "argos", "search packages", pair.String(), err)
	}
	if !listsPackage(out, name) {
		return &translation.PackageNotFoundError{Pair: pair, Backend: BackendName}
	}

	p.logger.Info("installing translation package",
		logging.String(logging.FieldEventType, "package_install"),
		logging.String("package", name),
	)
	if _, err := p.run(ctx, nil, PackageManagerCommand, "install", name); err != nil {
		return services.Wrap(services.ErrTranslation, "argos", "install package", name, err)
	}
	if p.registry != nil {
		if err := p.registry.Record(ctx, BackendName, pair.Source, pair.Target); err != nil {
			p.logger.Warn("failed to record installed package",
				logging.String("package", name),
				logging.Error(err),
				logging.String(logging.FieldEventType, "package_registry_write_failed"),
				logging.String(logging.FieldErrorHint, "check permissions on the package registry"),
				logging.String(logging.FieldImpact, "next run refreshes the package index again"),
			)
		}
	}
	p.ready[pair] = true
	return nil
}

func (p *Provider) translate(ctx context.Context, pair translation.Pair, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	out, err := p.run(ctx, strings.NewReader(text), TranslateCommand,
		"--from-lang", pair.Source,
		"--to-lang", pair.Target,
	)
	if err != nil {
		return "", fmt.Errorf("argos-translate %s: %w", pair, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *Provider) translateBatch(ctx context.Context, pair translation.Pair, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	lines := make([]string, 0, len(texts))
	index := make([]int, 0, len(texts))
	for i, text := range texts {
		line := strings.Join(strings.Fields(text), " ")
		if line == "" {
			continue
		}
		lines = append(lines, line)
		index = append(index, i)
	}
	if len(lines) == 0 {
		return out, nil
	}

	raw, err := p.run(ctx, strings.NewReader(strings.Join(lines, "\n")), TranslateCommand,
		"--from-lang", pair.Source,
		"--to-lang", pair.Target,
	)
	if err != nil {
		return nil, fmt.Errorf("argos-translate %s: %w", pair, err)
	}
	translated := strings.Split(strings.TrimRight(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n"), "\n")
	if len(translated) != len(lines) {
		return nil, fmt.Errorf("argos-translate %s: got %d lines for %d inputs", pair, len(translated), len(lines))
	}
	for j, i := range index {
		out[i] = strings.TrimSpace(translated[j])
	}
	p.logger.Debug("batch translated",
		logging.String("pair", pair.String()),
		logging.Int("lines", len(lines)),
	)
	return out, nil
}

// PackageName is the argospm package identifier for a pair.
func PackageName(pair translation.Pair) string {
	return "translate-" + pair.Source + "_" + pair.Target
}

// listsPackage reports whether argospm search output names pkg. Lines look
// like "translate-es_en: Spanish -> English".
func listsPackage(output []byte, pkg string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		name, _, _ := strings.Cut(line, ":")
		if strings.TrimSpace(name) == pkg {
			return true
		}
	}
	return false
}

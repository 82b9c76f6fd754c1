package translation

import (
	"context"
	"errors"
	"fmt"

	"vidsub/internal/services"
)

// Pair is an ordered source/target language pair.
type Pair struct {
	Source string
	Target string
}

func (p Pair) String() string {
	return p.Source + "->" + p.Target
}

// TranslateFunc maps one piece of text from a pair's source language to its
// target language.
type TranslateFunc func(ctx context.Context, text string) (string, error)

// Provider hands out translators for language pairs. Implementations may
// perform a one-time package install the first time a pair is requested.
// A pair the backend cannot serve must be reported as *PackageNotFoundError.
type Provider interface {
	Translator(ctx context.Context, pair Pair) (TranslateFunc, error)
}

// BatchTranslateFunc translates many texts in one backend call. It returns one
// result per input, in input order.
type BatchTranslateFunc func(ctx context.Context, texts []string) ([]string, error)

// BatchProvider is implemented by providers whose backend pays a fixed cost per
// call. The engine prefers BatchTranslator over Translator when both exist and
// translates each sequence in a single call.
type BatchProvider interface {
	BatchTranslator(ctx context.Context, pair Pair) (BatchTranslateFunc, error)
}

// PackageNotFoundError names a language pair no installed or installable
// translation package covers.
type PackageNotFoundError struct {
	Pair    Pair
	Backend string
}

func (e *PackageNotFoundError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s: no translation package for %s", e.Backend, e.Pair)
	}
	return fmt.Sprintf("no translation package for %s", e.Pair)
}

// Is lets errors.Is match the shared package-not-found marker.
func (e *PackageNotFoundError) Is(target error) bool {
	return target == services.ErrPackageNotFound
}

// MissingPair extracts the offending pair from a package-not-found error chain.
func MissingPair(err error) (Pair, bool) {
	var pnf *PackageNotFoundError
	if errors.As(err, &pnf) {
		return pnf.Pair, true
	}
	return Pair{}, false
}

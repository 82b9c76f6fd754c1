package translation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"vidsub/internal/captions"
	"vidsub/internal/logging"
	"vidsub/internal/services"
)

type fakeProvider struct {
	mu        sync.Mutex
	available map[Pair]bool
	resolved  map[Pair]int
	calls     map[Pair]int
	failOn    string
}

func newFakeProvider(pairs ...Pair) *fakeProvider {
	p := &fakeProvider{
		available: make(map[Pair]bool),
		resolved:  make(map[Pair]int),
		calls:     make(map[Pair]int),
	}
	for _, pair := range pairs {
		p.available[pair] = true
	}
	return p
}

func (p *fakeProvider) Translator(_ context.Context, pair Pair) (TranslateFunc, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolved[pair]++
	if !p.available[pair] {
		return nil, &PackageNotFoundError{Pair: pair, Backend: "fake"}
	}
	return func(_ context.Context, text string) (string, error) {
		p.mu.Lock()
		p.calls[pair]++
		p.mu.Unlock()
		if p.failOn != "" && text == p.failOn {
			return "", errors.New("backend exploded")
		}
		return "[" + pair.Target + "] " + text, nil
	}, nil
}

func (p *fakeProvider) segmentCalls(pair Pair) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[pair]
}

func (p *fakeProvider) totalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.calls {
		total += n
	}
	return total
}

type batchProvider struct {
	*fakeProvider
	batchCalls map[Pair]int
}

func newBatchProvider(pairs ...Pair) *batchProvider {
	return &batchProvider{fakeProvider: newFakeProvider(pairs...), batchCalls: make(map[Pair]int)}
}

func (p *batchProvider) BatchTranslator(_ context.Context, pair Pair) (BatchTranslateFunc, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolved[pair]++
	if !p.available[pair] {
		return nil, &PackageNotFoundError{Pair: pair, Backend: "fake"}
	}
	return func(_ context.Context, texts []string) ([]string, error) {
		p.mu.Lock()
		p.batchCalls[pair]++
		p.mu.Unlock()
		out := make([]string, len(texts))
		for i, text := range texts {
			out[i] = "[" + pair.Target + "] " + text
		}
		return out, nil
	}, nil
}

func sampleSequence(lang string) captions.Sequence {
	return captions.Sequence{
		Language: lang,
		Segments: []captions.Segment{
			{Start: 0, End: 1.2, Text: "Hola"},
			{Start: 1.5, End: 3.25, Text: "Buenos días"},
			{Start: 4, End: 6.5, Text: "Adiós"},
		},
	}
}

func TestApplyRelaysThroughHubOnce(t *testing.T) {
	provider := newFakeProvider(
		Pair{"es", "en"},
		Pair{"en", "fr"},
		Pair{"en", "de"},
	)
	engine := NewEngine(provider, logging.NewNop())
	plan := NewResolver("en").Resolve("es", []string{"es", "fr", "de"})
	source := sampleSequence("es")

	session, err := engine.Prepare(context.Background(), plan, source)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	out, err := engine.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d sequences, want 3", len(out))
	}
	for i, lang := range []string{"es", "fr", "de"} {
		if out[i].Language != lang {
			t.Errorf("sequence %d language = %q, want %q", i, out[i].Language, lang)
		}
		if !captions.TimingCongruent(out[i], source) {
			t.Errorf("sequence %s is not timing congruent with source", lang)
		}
	}
	if out[0].Segments[0].Text != "Hola" {
		t.Errorf("identity text changed: %q", out[0].Segments[0].Text)
	}
	if got := out[1].Segments[1].Text; got != "[fr] [en] Buenos días" {
		t.Errorf("relayed text = %q", got)
	}
	if session.RelayBuilds() != 1 {
		t.Fatalf("relay built %d times, want 1", session.RelayBuilds())
	}
	if got := provider.segmentCalls(Pair{"es", "en"}); got != source.Len() {
		t.Fatalf("es->en segment calls = %d, want %d", got, source.Len())
	}
}

func TestApplyConcurrentRelaySharesHubSequence(t *testing.T) {
	targets := []string{"fr", "de", "it", "pt", "ja", "en"}
	pairs := []Pair{{"es", "en"}}
	for _, lang := range targets {
		if lang != "en" {
			pairs = append(pairs, Pair{"en", lang})
		}
	}
	provider := newFakeProvider(pairs...)
	engine := NewEngine(provider, logging.NewNop(), WithConcurrency(4))
	plan := NewResolver("en").Resolve("es", targets)
	source := sampleSequence("es")

	session, err := engine.Prepare(context.Background(), plan, source)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	out, err := engine.Run(context.Background(), session)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.RelayBuilds() != 1 {
		t.Fatalf("relay built %d times, want 1", session.RelayBuilds())
	}
	if got := provider.segmentCalls(Pair{"es", "en"}); got != source.Len() {
		t.Fatalf("es->en segment calls = %d, want %d", got, source.Len())
	}
	for i, lang := range targets {
		if out[i].Language != lang {
			t.Errorf("sequence %d language = %q, want %q", i, out[i].Language, lang)
		}
	}
	if got := out[5].Segments[0].Text; got != "[en] Hola" {
		t.Errorf("hub target text = %q", got)
	}
}

func TestApplyIdentityMakesNoCalls(t *testing.T) {
	provider := newFakeProvider()
	engine := NewEngine(provider, logging.NewNop())
	source := sampleSequence("en")
	source.Segments[0].Text = "Hi"

	out, err := engine.Apply(context.Background(), NewResolver("en").Resolve("en", []string{"en"}), source)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out) != 1 || out[0].Language != "en" {
		t.Fatalf("unexpected output %+v", out)
	}
	if out[0].Segments[0].Text != "Hi" {
		t.Fatalf("identity text = %q", out[0].Segments[0].Text)
	}
	if provider.totalCalls() != 0 || len(provider.resolved) != 0 {
		t.Fatalf("identity route touched the provider: calls=%d resolved=%v", provider.totalCalls(), provider.resolved)
	}
}

func TestApplyDirectFromHub(t *testing.T) {
	provider := newFakeProvider(Pair{"en", "fr"})
	engine := NewEngine(provider, logging.NewNop())
	source := sampleSequence("en")

	out, err := engine.Apply(context.Background(), NewResolver("en").Resolve("en", []string{"fr"}), source)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := out[0].Segments[2].Text; got != "[fr] Adiós" {
		t.Fatalf("text = %q", got)
	}
	if got := provider.segmentCalls(Pair{"en", "fr"}); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestPrepareMissingPackageFailsBeforeTranslating(t *testing.T) {
	provider := newFakeProvider(Pair{"es", "en"}, Pair{"en", "fr"})
	engine := NewEngine(provider, logging.NewNop())
	plan := NewResolver("en").Resolve("es", []string{"fr", "de"})

	_, err := engine.Apply(context.Background(), plan, sampleSequence("es"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrPackageNotFound) {
		t.Fatalf("expected package-not-found marker, got %v", err)
	}
	pair, ok := MissingPair(err)
	if !ok || pair != (Pair{"en", "de"}) {
		t.Fatalf("missing pair = %v (%v)", pair, ok)
	}
	if provider.totalCalls() != 0 {
		t.Fatalf("translated %d segments before failing", provider.totalCalls())
	}
}

func TestPrepareResolvesEachPairOnce(t *testing.T) {
	provider := newFakeProvider(Pair{"es", "en"}, Pair{"en", "fr"}, Pair{"en", "de"})
	engine := NewEngine(provider, logging.NewNop())
	plan := NewResolver("en").Resolve("es", []string{"fr", "de", "en"})

	if _, err := engine.Prepare(context.Background(), plan, sampleSequence("es")); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for pair, n := range provider.resolved {
		if n != 1 {
			t.Errorf("pair %s resolved %d times", pair, n)
		}
	}
}

func TestPrepareRejectsLanguageMismatch(t *testing.T) {
	engine := NewEngine(newFakeProvider(), logging.NewNop())
	_, err := engine.Prepare(context.Background(), NewResolver("en").Resolve("es", nil), sampleSequence("fr"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTranslateSequenceWrapsSegmentFailure(t *testing.T) {
	provider := newFakeProvider(Pair{"en", "fr"})
	provider.failOn = "Buenos días"
	fn, err := provider.Translator(context.Background(), Pair{"en", "fr"})
	if err != nil {
		t.Fatalf("Translator: %v", err)
	}

	_, err = TranslateSequence(context.Background(), Pair{"en", "fr"}, fn, sampleSequence("en"))
	if !errors.Is(err, services.ErrTranslation) {
		t.Fatalf("expected translation marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "en->fr") || !strings.Contains(err.Error(), "segment 2") {
		t.Fatalf("error lacks pair or index: %v", err)
	}
}

func TestTranslateSequenceKeepsEmptyInput(t *testing.T) {
	fn := func(_ context.Context, text string) (string, error) { return text, nil }
	out, err := TranslateSequence(context.Background(), Pair{"en", "fr"}, fn, captions.Sequence{Language: "en"})
	if err != nil {
		t.Fatalf("TranslateSequence: %v", err)
	}
	if out.Len() != 0 || out.Language != "fr" {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestApplyPrefersBatchTranslator(t *testing.T) {
	provider := newBatchProvider(Pair{"es", "en"}, Pair{"en", "fr"})
	engine := NewEngine(provider, logging.NewNop())
	plan := NewResolver("en").Resolve("es", []string{"fr", "en"})
	source := sampleSequence("es")

	out, err := engine.Apply(context.Background(), plan, source)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if provider.batchCalls[Pair{"es", "en"}] != 1 || provider.batchCalls[Pair{"en", "fr"}] != 1 {
		t.Fatalf("batch calls = %v, want one per pair", provider.batchCalls)
	}
	if provider.totalCalls() != 0 {
		t.Fatalf("per-segment translator used %d times", provider.totalCalls())
	}
	for _, seq := range out {
		if !captions.TimingCongruent(seq, source) {
			t.Errorf("sequence %s is not timing congruent with source", seq.Language)
		}
	}
	if got := out[0].Segments[2].Text; got != "[fr] [en] Adiós" {
		t.Errorf("relayed text = %q", got)
	}
}

func TestTranslateBatchRejectsShortResult(t *testing.T) {
	fn := func(_ context.Context, texts []string) ([]string, error) { return texts[:1], nil }
	_, err := TranslateBatch(context.Background(), Pair{"es", "en"}, fn, sampleSequence("es"))
	if !errors.Is(err, services.ErrTranslation) {
		t.Fatalf("expected translation marker, got %v", err)
	}
}

func TestRelayLogsUnderHubLanguage(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	provider := newFakeProvider(Pair{"es", "en"}, Pair{"en", "fr"})
	engine := NewEngine(provider, logger)
	plan := NewResolver("en").Resolve("es", []string{"fr"})

	if _, err := engine.Apply(context.Background(), plan, sampleSequence("es")); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	var relayLine string
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, "hub sequence built") {
			relayLine = line
		}
	}
	if relayLine == "" {
		t.Fatalf("no relay log line in:\n%s", logs.String())
	}
	if !strings.Contains(relayLine, "language=en") || strings.Contains(relayLine, "language=fr") {
		t.Fatalf("relay log should carry the hub language: %s", relayLine)
	}
}

func TestWithConcurrencyFloorsAtOne(t *testing.T) {
	engine := NewEngine(newFakeProvider(), nil, WithConcurrency(0))
	if engine.concurrency != 1 {
		t.Fatalf("concurrency = %d, want 1", engine.concurrency)
	}
}

package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"vidsub/internal/captions"
	"vidsub/internal/logging"
	"vidsub/internal/services"
)

// Engine applies translation plans to segment sequences.
type Engine struct {
	provider    Provider
	logger      *slog.Logger
	concurrency int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithConcurrency bounds how many target languages are translated at once.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

// NewEngine constructs an engine backed by provider.
func NewEngine(provider Provider, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		provider:    provider,
		logger:      logging.NewComponentLogger(logger, "translation"),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session holds the translators resolved for one plan and the lazily built
// hub-language sequence shared by relayed routes.
type Session struct {
	plan        Plan
	source      captions.Sequence
	translators map[Pair]translator
	logger      *slog.Logger

	relayOnce   sync.Once
	relay       captions.Sequence
	relayErr    error
	relayBuilds atomic.Int32
}

// Prepare resolves every translator the plan needs. Any missing package fails
// here, before a single segment is translated.
func (e *Engine) Prepare(ctx context.Context, plan Plan, source captions.Sequence) (*Session, error) {
	if e == nil || e.provider == nil {
		pairs := plan.Pairs()
		if len(pairs) > 0 {
			return nil, services.Wrap(services.ErrConfiguration, "translation", "prepare", "no translation provider configured", nil)
		}
	}
	if source.Language != "" && source.Language != plan.Source {
		return nil, services.Wrap(services.ErrValidation, "translation", "prepare",
			fmt.Sprintf("sequence language %q does not match plan source %q", source.Language, plan.Source), nil)
	}
	s := &Session{
		plan:        plan,
		source:      source.WithLanguage(plan.Source),
		translators: make(map[Pair]translator),
		logger:      e.loggerOrNop(),
	}
	for _, pair := range plan.Pairs() {
		tr, err := e.resolve(ctx, pair)
		if err != nil {
			if errors.Is(err, services.ErrPackageNotFound) {
				return nil, services.Wrap(services.ErrPackageNotFound, "translation", "resolve package", pair.String(), err)
			}
			return nil, services.Wrap(services.ErrTranslation, "translation", "resolve package", pair.String(), err)
		}
		if tr.single == nil && tr.batch == nil {
			return nil, &PackageNotFoundError{Pair: pair}
		}
		s.translators[pair] = tr
		s.logger.Debug("translator ready",
			logging.String("pair", pair.String()),
			logging.Bool("batch", tr.batch != nil),
		)
	}
	return s, nil
}

// Apply prepares the plan and produces one sequence per route, in route order.
// Every returned sequence is timing-congruent with source.
func (e *Engine) Apply(ctx context.Context, plan Plan, source captions.Sequence) ([]captions.Sequence, error) {
	session, err := e.Prepare(ctx, plan, source)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, session)
}

// Run translates every route of a prepared session.
func (e *Engine) Run(ctx context.Context, session *Session) ([]captions.Sequence, error) {
	routes := session.plan.Routes
	results := make([]captions.Sequence, len(routes))

	limit := 1
	if e != nil && e.concurrency > 1 {
		limit = e.concurrency
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, route := range routes {
		group.Go(func() error {
			seq, err := session.Translate(groupCtx, route)
			if err != nil {
				return err
			}
			results[i] = seq
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Translate produces the sequence for one route.
func (s *Session) Translate(ctx context.Context, route Route) (captions.Sequence, error) {
	ctx = services.WithLanguage(ctx, route.Target)
	logger := logging.WithContext(ctx, s.logger)

	var (
		out captions.Sequence
		err error
	)
	switch route.Kind {
	case Identity:
		out = s.source.WithLanguage(route.Target)
	case Direct:
		pair := route.Legs[0]
		if pair == s.plan.RelayPair() && s.plan.NeedsRelay() {
			// The hub target shares the relay leg's output.
			var hub captions.Sequence
			hub, err = s.Relay(ctx)
			out = hub.Clone()
		} else {
			out, err = s.translators[pair].sequence(ctx, pair, s.source)
		}
	case Relayed:
		var hub captions.Sequence
		hub, err = s.Relay(ctx)
		if err == nil {
			pair := route.Legs[len(route.Legs)-1]
			out, err = s.translators[pair].sequence(ctx, pair, hub)
		}
	default:
		err = fmt.Errorf("unknown route kind %d", route.Kind)
	}
	if err != nil {
		return captions.Sequence{}, err
	}
	logger.Info("caption language translated",
		logging.String("route", route.Kind.String()),
		logging.Int("segments", out.Len()),
	)
	return out, nil
}

// Relay returns the hub-language sequence, translating it on first use.
// Concurrent callers share one construction, which runs tagged with the hub
// language rather than the caller's target.
func (s *Session) Relay(ctx context.Context) (captions.Sequence, error) {
	s.relayOnce.Do(func() {
		pair := s.plan.RelayPair()
		ctx := services.WithLanguage(ctx, pair.Target)
		s.relayBuilds.Add(1)
		s.relay, s.relayErr = s.translators[pair].sequence(ctx, pair, s.source)
		if s.relayErr == nil {
			logging.WithContext(ctx, s.logger).Info("hub sequence built",
				logging.String("pair", pair.String()),
				logging.Int("segments", s.relay.Len()),
			)
		}
	})
	return s.relay, s.relayErr
}

// RelayBuilds reports how many times the hub sequence was constructed.
func (s *Session) RelayBuilds() int {
	return int(s.relayBuilds.Load())
}

// TranslateSequence translates every segment's text through fn, keeping start,
// end, and order. The result is tagged with pair.Target.
func TranslateSequence(ctx context.Context, pair Pair, fn TranslateFunc, seq captions.Sequence) (captions.Sequence, error) {
	if fn == nil {
		return captions.Sequence{}, &PackageNotFoundError{Pair: pair}
	}
	out := captions.Sequence{Language: pair.Target, Segments: make([]captions.Segment, len(seq.Segments))}
	for i, seg := range seq.Segments {
		if err := ctx.Err(); err != nil {
			return captions.Sequence{}, err
		}
		text, err := fn(ctx, seg.Text)
		if err != nil {
			return captions.Sequence{}, services.Wrap(services.ErrTranslation, "translation", pair.String(),
				fmt.Sprintf("segment %d", i+1), err)
		}
		out.Segments[i] = captions.Segment{Start: seg.Start, End: seg.End, Text: strings.TrimSpace(text)}
	}
	return out, nil
}

// TranslateBatch translates every segment's text through a single call of fn,
// keeping start, end, and order. The result is tagged with pair.Target.
func TranslateBatch(ctx context.Context, pair Pair, fn BatchTranslateFunc, seq captions.Sequence) (captions.Sequence, error) {
	if fn == nil {
		return captions.Sequence{}, &PackageNotFoundError{Pair: pair}
	}
	out := captions.Sequence{Language: pair.Target, Segments: make([]captions.Segment, len(seq.Segments))}
	if len(seq.Segments) == 0 {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return captions.Sequence{}, err
	}
	texts := make([]string, len(seq.Segments))
	for i, seg := range seq.Segments {
		texts[i] = seg.Text
	}
	translated, err := fn(ctx, texts)
	if err != nil {
		return captions.Sequence{}, services.Wrap(services.ErrTranslation, "translation", pair.String(),
			fmt.Sprintf("%d segments", len(texts)), err)
	}
	if len(translated) != len(texts) {
		return captions.Sequence{}, services.Wrap(services.ErrTranslation, "translation", pair.String(),
			fmt.Sprintf("backend returned %d texts for %d segments", len(translated), len(texts)), nil)
	}
	for i, seg := range seq.Segments {
		out.Segments[i] = captions.Segment{Start: seg.Start, End: seg.End, Text: strings.TrimSpace(translated[i])}
	}
	return out, nil
}

// translator holds whichever form the provider offered for a pair.
type translator struct {
	single TranslateFunc
	batch  BatchTranslateFunc
}

func (t translator) sequence(ctx context.Context, pair Pair, seq captions.Sequence) (captions.Sequence, error) {
	if t.batch != nil {
		return TranslateBatch(ctx, pair, t.batch, seq)
	}
	return TranslateSequence(ctx, pair, t.single, seq)
}

func (e *Engine) resolve(ctx context.Context, pair Pair) (translator, error) {
	if bp, ok := e.provider.(BatchProvider); ok {
		fn, err := bp.BatchTranslator(ctx, pair)
		return translator{batch: fn}, err
	}
	fn, err := e.provider.Translator(ctx, pair)
	return translator{single: fn}, err
}

func (e *Engine) loggerOrNop() *slog.Logger {
	if e == nil || e.logger == nil {
		return logging.NewNop()
	}
	return e.logger
}

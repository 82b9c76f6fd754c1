package translation

import "strings"

// Kind classifies how a target language is produced.
type Kind int

const (
	// Identity reuses the source text unchanged.
	Identity Kind = iota
	// Direct translates source→target in one hop.
	Direct
	// Relayed translates source→hub, then hub→target.
	Relayed
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Direct:
		return "direct"
	case Relayed:
		return "relayed"
	default:
		return "unknown"
	}
}

// Route describes how one target language is produced. Legs lists the
// translation hops in order; it is empty for identity routes.
type Route struct {
	Target string
	Kind   Kind
	Legs   []Pair
}

// Plan is the resolved set of routes for one run, one per distinct target in
// request order.
type Plan struct {
	Source string
	Hub    string
	Routes []Route
}

// NeedsRelay reports whether any route goes through the hub language.
func (p Plan) NeedsRelay() bool {
	for _, r := range p.Routes {
		if r.Kind == Relayed {
			return true
		}
	}
	return false
}

// RelayPair is the source→hub leg shared by relayed routes.
func (p Plan) RelayPair() Pair {
	return Pair{Source: p.Source, Target: p.Hub}
}

// Targets lists the planned target languages in order.
func (p Plan) Targets() []string {
	out := make([]string, 0, len(p.Routes))
	for _, r := range p.Routes {
		out = append(out, r.Target)
	}
	return out
}

// Pairs lists every distinct translation pair the plan invokes, the relay leg
// first when present.
func (p Plan) Pairs() []Pair {
	seen := make(map[Pair]struct{})
	var out []Pair
	add := func(pair Pair) {
		if _, ok := seen[pair]; ok {
			return
		}
		seen[pair] = struct{}{}
		out = append(out, pair)
	}
	if p.NeedsRelay() {
		add(p.RelayPair())
	}
	for _, r := range p.Routes {
		for _, leg := range r.Legs {
			add(leg)
		}
	}
	return out
}

// Resolver chooses a route for every requested target language.
type Resolver struct {
	Hub string
}

// NewResolver constructs a resolver pivoting through hub.
func NewResolver(hub string) Resolver {
	return Resolver{Hub: strings.TrimSpace(hub)}
}

// Resolve builds the plan for source and targets. An empty target list means
// the source language only. Duplicate targets collapse to their first
// occurrence; blank entries are ignored.
//
// Routing rules, applied per target t:
//   - t == source: identity
//   - source == hub, or t == hub: direct
//   - otherwise: relayed through the hub
func (r Resolver) Resolve(source string, targets []string) Plan {
	plan := Plan{Source: source, Hub: r.Hub}
	targets = dedupe(targets)
	if len(targets) == 0 {
		targets = []string{source}
	}
	for _, t := range targets {
		plan.Routes = append(plan.Routes, r.route(source, t))
	}
	return plan
}

func (r Resolver) route(source, target string) Route {
	switch {
	case target == source:
		return Route{Target: target, Kind: Identity}
	case source == r.Hub || target == r.Hub || r.Hub == "":
		return Route{Target: target, Kind: Direct, Legs: []Pair{{Source: source, Target: target}}}
	default:
		return Route{
			Target: target,
			Kind:   Relayed,
			Legs: []Pair{
				{Source: source, Target: r.Hub},
				{Source: r.Hub, Target: target},
			},
		}
	}
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

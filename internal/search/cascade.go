package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/mail"
)

// Strategy identifiers recorded in a Trace.
const (
	StrategyCombined    = "combined-search"
	StrategyFiltersOnly = "boolean-filters-only"
	StrategyRecent      = "recent-emails"
)

// SingleTermStrategy returns the strategy id for searching field f alone.
func SingleTermStrategy(f Field) string {
	return "single-term-" + f.String()
}

// ErrAuthRequired is returned when Graph rejects the credential during a
// search. The cascade stops at the first such failure.
var ErrAuthRequired = errors.New("authentication required")

// Outcome classifies a single attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeEmpty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeEmpty:
		return "Empty"
	case OutcomeFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Attempt records one strategy run.
type Attempt struct {
	Strategy string
	Outcome  Outcome
	Count    int   // messages returned, for OutcomeSuccess
	Err      error // cause, for OutcomeFailed
}

func (a Attempt) String() string {
	switch a.Outcome {
	case OutcomeSuccess:
		return fmt.Sprintf("%s:Success(%d)", a.Strategy, a.Count)
	case OutcomeFailed:
		return fmt.Sprintf("%s:Failed(%v)", a.Strategy, a.Err)
	default:
		return a.Strategy + ":" + a.Outcome.String()
	}
}

// Trace is the ordered list of attempts of one search.
type Trace []Attempt

// Append returns a new trace with a added. The receiver is not modified.
func (t Trace) Append(a Attempt) Trace {
	out := make(Trace, len(t), len(t)+1)
	copy(out, t)
	return append(out, a)
}

// Last returns the final attempt, or the zero Attempt for an empty trace.
func (t Trace) Last() Attempt {
	if len(t) == 0 {
		return Attempt{}
	}
	return t[len(t)-1]
}

// Strategies returns the strategy ids in order.
func (t Trace) Strategies() []string {
	ids := make([]string, len(t))
	for i, a := range t {
		ids[i] = a.Strategy
	}
	return ids
}

func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, a := range t {
		parts[i] = a.String()
	}
	return strings.Join(parts, " -> ")
}

// Result is the outcome of a search: the messages of the producing
// strategy and the trace of everything tried.
type Result struct {
	Messages []mail.MessageSummary
	Trace    Trace
}

// Resolver runs the progressive search cascade against Graph.
type Resolver struct {
	api     graph.API
	builder Builder
	logger  *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithBuilder sets the parameter builder (result cap, selected fields).
func WithBuilder(b Builder) ResolverOption {
	return func(r *Resolver) {
		r.builder = b
	}
}

// WithLogger sets the logger for the resolver.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver issuing calls through api.
func NewResolver(api graph.API, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		api:    api,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// step is one planned attempt.
type step struct {
	strategy string
	params   graph.Params
}

// plan lists the attempts in the order they run. The last step is the
// unconstrained fallback.
func (r *Resolver) plan(terms SearchTerms, filters FilterTerms, limit int) []step {
	steps := []step{{StrategyCombined, r.builder.Build(terms, filters, limit)}}
	for _, f := range singleTermOrder {
		if v := f.value(terms); v != "" {
			steps = append(steps, step{SingleTermStrategy(f), r.builder.singleTerm(f, v, filters, limit)})
		}
	}
	if filters.Any() {
		steps = append(steps, step{StrategyFiltersOnly, r.builder.filtersOnly(filters, limit)})
	}
	return append(steps, step{StrategyRecent, r.builder.recent(limit)})
}

// Search runs the strategies against endpoint (e.g. "me/messages") in
// order and returns the first non-empty result. The unconstrained fallback
// is returned even when empty. Failed attempts are recorded and skipped;
// an unauthorized response aborts with ErrAuthRequired.
func (r *Resolver) Search(ctx context.Context, endpoint, token string, terms SearchTerms, filters FilterTerms, limit int) (*Result, error) {
	steps := r.plan(terms, filters, limit)

	var trace Trace
	for i, s := range steps {
		terminal := i == len(steps)-1

		var list mail.MessageList
		err := r.api.Call(ctx, token, graph.MethodGet, endpoint, nil, s.params, &list)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			if graph.IsUnauthorized(err) {
				r.logger.Debug("search unauthorized", "strategy", s.strategy)
				return nil, fmt.Errorf("%w: %w", ErrAuthRequired, err)
			}
			trace = trace.Append(Attempt{Strategy: s.strategy, Outcome: OutcomeFailed, Err: err})
			r.logger.Debug("search attempt failed", "strategy", s.strategy, "params", s.params.Encode(), "error", err)
			if terminal {
				return nil, fmt.Errorf("%s: %w", s.strategy, err)
			}
			continue
		}

		n := len(list.Value)
		attempt := Attempt{Strategy: s.strategy, Outcome: OutcomeEmpty}
		if n > 0 {
			attempt = Attempt{Strategy: s.strategy, Outcome: OutcomeSuccess, Count: n}
		}
		trace = trace.Append(attempt)
		r.logger.Debug("search attempt", "strategy", s.strategy, "params", s.params.Encode(), "outcome", attempt.Outcome, "count", n)

		if n > 0 || terminal {
			return &Result{Messages: list.Value, Trace: trace}, nil
		}
	}

	return nil, errors.New("search: no strategies planned")
}

package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nakulbh/factorgrid/internal/calendar"
	"github.com/nakulbh/factorgrid/internal/ctxlog"
	"github.com/nakulbh/factorgrid/internal/term"
)

// AmbiguousDomainError reports that terms reachable from one pipeline are
// pinned to more than one domain. Detected at planning, before any data is
// loaded.
type AmbiguousDomainError struct {
	Domains []string
}

// Error implements the error interface.
func (e *AmbiguousDomainError) Error() string {
	return fmt.Sprintf("plan: pipeline mixes domains %v", e.Domains)
}

// InsufficientHistoryError reports that a term's look-back requirement
// reaches past the start of the calendar.
type InsufficientHistoryError struct {
	Term      string
	ExtraRows int
	Cause     error
}

// Error implements the error interface.
func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("plan: term %s needs %d extra rows before the requested start: %v",
		e.Term, e.ExtraRows, e.Cause)
}

// Unwrap exposes the calendar error.
func (e *InsufficientHistoryError) Unwrap() error { return e.Cause }

// Plan is the graph annotated with, per term, the extra historical rows and
// absolute date range needed to satisfy all of its consumers. A plan is
// built fresh per run (or per chunk) and discarded afterwards.
type Plan struct {
	graph    *Graph
	domain   *calendar.Domain
	start    time.Time
	end      time.Time
	sessions []time.Time
	order    []*term.Term
	extra    map[string]int
	starts   map[string]time.Time
}

// Compile annotates a built graph against a domain and requested date
// range. A term's extra rows is the maximum over its consumers of the
// consumer's extra rows plus the consumer's window minus one, so every path
// from an output down to a leaf accumulates its full warm-up requirement.
func Compile(ctx context.Context, g *Graph, dom *calendar.Domain, start, end time.Time) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Compile: starting plan compilation.",
		"domain", dom.Name, "start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))

	if err := checkDomains(g, dom); err != nil {
		return nil, err
	}

	sessions, err := dom.Calendar.SessionsInRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("plan: requested range: %w", err)
	}

	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}

	// Walk consumers-first so every term sees its dependents' finished
	// requirements before contributing its own.
	extra := make(map[string]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		t := order[i]
		deps, err := g.Dependencies(t)
		if err != nil {
			return nil, err
		}
		demand := extra[t.Key()] + t.Window() - 1
		for _, d := range deps {
			if demand > extra[d.Key()] {
				extra[d.Key()] = demand
			}
		}
	}

	starts := make(map[string]time.Time, len(order))
	for _, t := range order {
		shifted, err := dom.Calendar.ShiftBack(start, extra[t.Key()])
		if err != nil {
			return nil, &InsufficientHistoryError{Term: t.Key(), ExtraRows: extra[t.Key()], Cause: err}
		}
		starts[t.Key()] = shifted
	}

	logger.Debug("Compile: plan compilation complete.", "terms", len(order))
	return &Plan{
		graph:    g,
		domain:   dom,
		start:    start,
		end:      end,
		sessions: sessions,
		order:    order,
		extra:    extra,
		starts:   starts,
	}, nil
}

// checkDomains fails when reachable terms pin more than one domain, or a
// domain differing from the one the run executes against.
func checkDomains(g *Graph, dom *calendar.Domain) error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	seen := make(map[string]struct{})
	for _, n := range g.nodes {
		if d := n.term.Domain(); d != "" {
			seen[d] = struct{}{}
		}
	}
	if len(seen) > 1 {
		domains := make([]string, 0, len(seen))
		for d := range seen {
			domains = append(domains, d)
		}
		sort.Strings(domains)
		return &AmbiguousDomainError{Domains: domains}
	}
	for d := range seen {
		if d != dom.Name {
			return &AmbiguousDomainError{Domains: []string{d, dom.Name}}
		}
	}
	return nil
}

// Graph returns the underlying dependency graph.
func (p *Plan) Graph() *Graph { return p.graph }

// Domain returns the domain the plan was compiled against.
func (p *Plan) Domain() *calendar.Domain { return p.domain }

// Start returns the requested start session.
func (p *Plan) Start() time.Time { return p.start }

// End returns the requested end session.
func (p *Plan) End() time.Time { return p.end }

// Sessions returns the requested output sessions.
func (p *Plan) Sessions() []time.Time { return p.sessions }

// Order returns every term in the stable topological execution order.
func (p *Plan) Order() []*term.Term { return p.order }

// ExtraRows returns the warm-up rows the term must compute before the
// requested start.
func (p *Plan) ExtraRows(t *term.Term) int { return p.extra[t.Key()] }

// TermStart returns the absolute first session the term must cover.
func (p *Plan) TermStart(t *term.Term) time.Time { return p.starts[t.Key()] }

// TermSessions returns the absolute sessions the term must cover: the
// requested range extended backwards by its extra rows.
func (p *Plan) TermSessions(t *term.Term) ([]time.Time, error) {
	return p.domain.Calendar.SessionsInRange(p.starts[t.Key()], p.end)
}

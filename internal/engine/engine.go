// Package engine orchestrates one pipeline run: it builds the term graph,
// compiles the execution plan, populates leaves from loaders, executes the
// remaining terms in stable topological order, and extracts the final
// table. A run either returns a fully consistent table or an error; no
// partial output ever escapes.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nakulbh/factorgrid/internal/adjarray"
	"github.com/nakulbh/factorgrid/internal/calendar"
	"github.com/nakulbh/factorgrid/internal/ctxlog"
	"github.com/nakulbh/factorgrid/internal/grid"
	"github.com/nakulbh/factorgrid/internal/hooks"
	"github.com/nakulbh/factorgrid/internal/lifetimes"
	"github.com/nakulbh/factorgrid/internal/loader"
	"github.com/nakulbh/factorgrid/internal/pipeline"
	"github.com/nakulbh/factorgrid/internal/table"
	"github.com/nakulbh/factorgrid/internal/term"
)

// Value is one term's materialized output. Exactly one field is non-nil,
// matching the term's dtype. Float values travel as adjusted arrays so
// leaf data and computed grids share one window path; computed grids
// simply carry no adjustments.
type Value struct {
	Float *adjarray.Array
	Bool  *grid.Grid[bool]
	Label *grid.Grid[string]
}

// Engine evaluates pipelines. It is stateless across runs apart from the
// process-wide term intern table, so one Engine may serve concurrent runs.
type Engine struct {
	loader    loader.Loader
	lifetimes lifetimes.Provider
	hooks     []hooks.Hook
}

// Option configures an Engine.
type Option func(*Engine)

// WithHooks attaches instrumentation hooks. Hooks observe timing only and
// never affect results.
func WithHooks(hs ...hooks.Hook) Option {
	return func(e *Engine) { e.hooks = append(e.hooks, hs...) }
}

// New creates an engine over the given loader and lifetimes provider.
func New(l loader.Loader, lt lifetimes.Provider, opts ...Option) *Engine {
	e := &Engine{loader: l, lifetimes: lt}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates the pipeline over [start, end] on the given domain.
func (e *Engine) Run(ctx context.Context, p *pipeline.Pipeline, dom *calendar.Domain, start, end time.Time) (*table.Table, error) {
	return e.run(ctx, p, dom, start, end, nil)
}

// RunSeeded is Run with externally supplied initial workspace entries,
// keyed by term. Each seeded value must cover the term's extended date
// range; seeded terms are not loaded or computed.
func (e *Engine) RunSeeded(ctx context.Context, p *pipeline.Pipeline, dom *calendar.Domain, start, end time.Time, seed map[*term.Term]Value) (*table.Table, error) {
	return e.run(ctx, p, dom, start, end, seed)
}

// RunChunked splits [start, end] into sub-ranges of at most chunk sessions
// and runs the full pipeline independently per chunk, concatenating the
// results in ascending start order. Warm-up windows are recomputed per
// chunk; the point is to bound peak workspace memory, not total compute.
func (e *Engine) RunChunked(ctx context.Context, p *pipeline.Pipeline, dom *calendar.Domain, start, end time.Time, chunk int) (*table.Table, error) {
	ranges, err := dom.Calendar.SplitRange(start, end, chunk)
	if err != nil {
		return nil, fmt.Errorf("engine: chunking: %w", err)
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Chunked run starting.", "chunks", len(ranges), "chunk_sessions", chunk)

	chunks := make([]*table.Table, 0, len(ranges))
	for i, rg := range ranges {
		tbl, err := e.run(ctx, p, dom, rg.Start, rg.End, nil)
		if err != nil {
			return nil, fmt.Errorf("engine: chunk %d [%s, %s]: %w",
				i, rg.Start.Format(time.DateOnly), rg.End.Format(time.DateOnly), err)
		}
		chunks = append(chunks, tbl)
	}
	return table.Concat(chunks)
}

// run drives the Built -> Planned -> Populated -> Executing -> Extracted
// state machine for a single chunk-or-whole range.
func (e *Engine) run(ctx context.Context, p *pipeline.Pipeline, dom *calendar.Domain, start, end time.Time, seed map[*term.Term]Value) (*table.Table, error) {
	runID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	r, err := newRun(ctx, e, p, dom, start, end, runID, seed)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	for _, h := range e.hooks {
		h.RunStart(ctx, runID, r.plan.Graph().Len())
	}

	tbl, err := r.execute(ctx)

	elapsed := time.Since(began)
	for _, h := range e.hooks {
		h.RunEnd(ctx, runID, elapsed, err)
	}
	if err != nil {
		return nil, err
	}
	return tbl, nil
}

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nakulbh/factorgrid/internal/calendar"
	"github.com/nakulbh/factorgrid/internal/ctxlog"
	"github.com/nakulbh/factorgrid/internal/graph"
	"github.com/nakulbh/factorgrid/internal/loader"
	"github.com/nakulbh/factorgrid/internal/pipeline"
	"github.com/nakulbh/factorgrid/internal/table"
	"github.com/nakulbh/factorgrid/internal/term"
	"github.com/nakulbh/factorgrid/internal/workspace"
)

// state tracks the run lifecycle. Transitions only move forward; any
// failure aborts the run wholesale, so no partially-extracted table can
// ever be observed.
type state int

const (
	stateBuilt state = iota + 1
	statePlanned
	statePopulated
	stateExecuting
	stateExtracted
)

// String returns the state name for logs.
func (s state) String() string {
	switch s {
	case stateBuilt:
		return "built"
	case statePlanned:
		return "planned"
	case statePopulated:
		return "populated"
	case stateExecuting:
		return "executing"
	case stateExtracted:
		return "extracted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// run is the per-run working set: plan, workspace, and seed entries. It is
// created fresh per run (or per chunk) and discarded at the end.
type run struct {
	engine *Engine
	pipe   *pipeline.Pipeline
	dom    *calendar.Domain
	runID  string
	seed   map[*term.Term]Value

	plan  *graph.Plan
	ws    *workspace.Store
	state state
}

// newRun builds the graph and compiles the plan, covering the Built and
// Planned states. Configuration errors (cycles, ambiguous domains,
// insufficient history) surface here, before any data is loaded.
func newRun(ctx context.Context, e *Engine, p *pipeline.Pipeline, dom *calendar.Domain, start, end time.Time, runID string, seed map[*term.Term]Value) (*run, error) {
	if len(p.Columns()) == 0 {
		return nil, fmt.Errorf("engine: pipeline has no columns")
	}

	g, err := graph.Build(ctx, p)
	if err != nil {
		return nil, err
	}
	r := &run{engine: e, pipe: p, dom: dom, runID: runID, seed: seed}
	r.advance(ctx, stateBuilt)

	plan, err := graph.Compile(ctx, g, dom, start, end)
	if err != nil {
		return nil, err
	}
	r.plan = plan
	r.ws = workspace.New()
	r.advance(ctx, statePlanned)
	return r, nil
}

// advance moves the state machine forward and logs the transition.
func (r *run) advance(ctx context.Context, to state) {
	ctxlog.FromContext(ctx).Debug("Run state transition.", "from", r.state.String(), "to", to.String())
	r.state = to
}

// execute drives Populated -> Executing -> Extracted and returns the table.
func (r *run) execute(ctx context.Context) (*table.Table, error) {
	if err := r.populate(ctx); err != nil {
		return nil, err
	}
	r.advance(ctx, statePopulated)

	r.advance(ctx, stateExecuting)
	if err := r.executeTerms(ctx); err != nil {
		return nil, err
	}

	tbl, err := r.extract(ctx)
	if err != nil {
		return nil, err
	}
	r.advance(ctx, stateExtracted)
	return tbl, nil
}

// populate initializes refcounts and loads every leaf: the lifetimes mask
// for the root term, one adjusted array per bound column, and any seeded
// entries.
func (r *run) populate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	g := r.plan.Graph()

	// Refcounts: one release per not-yet-computed consumer. Requested
	// outputs, the screen, and the root mask are pinned so extraction can
	// still read them after their last consumer runs.
	for _, t := range r.plan.Order() {
		dependents, err := g.Dependents(t)
		if err != nil {
			return err
		}
		r.ws.SetRefCount(t.Key(), len(dependents))
	}
	for _, col := range r.pipe.Columns() {
		r.ws.Pin(col.Term.Key())
	}
	if screen := r.pipe.Screen(); screen != nil {
		r.ws.Pin(screen.Key())
	}
	r.ws.Pin(term.Alive().Key())

	// Seeded entries take precedence over loading and computing.
	for t, v := range r.seed {
		if !g.Contains(t) {
			return fmt.Errorf("engine: seeded term %s is not part of the graph", t.Key())
		}
		if err := r.checkSeedShape(t, v); err != nil {
			return err
		}
		r.ws.Put(t.Key(), v)
	}

	// Lifetimes mask for the implicit root.
	root := term.Alive()
	if !r.ws.Has(root.Key()) {
		dates, err := r.plan.TermSessions(root)
		if err != nil {
			return err
		}
		mask, err := r.engine.lifetimes.Mask(ctx, r.dom, dates)
		if err != nil {
			return fmt.Errorf("engine: lifetimes: %w", err)
		}
		if mask.Rows() != len(dates) || mask.Cols() != len(r.dom.Assets) {
			return &loader.ShapeError{
				Column:   "lifetimes",
				WantRows: len(dates), WantCols: len(r.dom.Assets),
				GotRows: mask.Rows(), GotCols: mask.Cols(),
			}
		}
		r.ws.Put(root.Key(), Value{Bool: mask})
		logger.Debug("Populated lifetimes mask.", "rows", mask.Rows(), "cols", mask.Cols())
	}

	// Bound columns, one loader call per column over its extended range.
	for _, t := range r.plan.Order() {
		if t.Kind() != term.BoundColumn || r.ws.Has(t.Key()) {
			continue
		}
		name, err := t.BoundName()
		if err != nil {
			return err
		}
		dates, err := r.plan.TermSessions(t)
		if err != nil {
			return err
		}
		arr, err := r.engine.loader.Load(ctx, name, dates, r.dom.Assets)
		if err != nil {
			return fmt.Errorf("engine: loading column %q: %w", name, err)
		}
		if err := loader.CheckShape(name, arr, len(dates), len(r.dom.Assets)); err != nil {
			return err
		}
		r.ws.Put(t.Key(), Value{Float: arr})
		logger.Debug("Populated bound column.", "column", name, "rows", arr.Rows(), "extra_rows", r.plan.ExtraRows(t))
	}
	return nil
}

// checkSeedShape validates a seeded value against the term's extended
// range before it can poison the run.
func (r *run) checkSeedShape(t *term.Term, v Value) error {
	dates, err := r.plan.TermSessions(t)
	if err != nil {
		return err
	}
	rows, cols := -1, -1
	switch {
	case v.Float != nil:
		rows, cols = v.Float.Rows(), v.Float.Cols()
	case v.Bool != nil:
		rows, cols = v.Bool.Rows(), v.Bool.Cols()
	case v.Label != nil:
		rows, cols = v.Label.Rows(), v.Label.Cols()
	}
	if rows != len(dates) || cols != len(r.dom.Assets) {
		return fmt.Errorf("engine: seeded term %s has shape %dx%d, want %dx%d",
			t.Key(), rows, cols, len(dates), len(r.dom.Assets))
	}
	return nil
}

// executeTerms runs every remaining node in the stable topological order,
// releasing inputs as their last consumers finish.
func (r *run) executeTerms(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	g := r.plan.Graph()

	for _, t := range r.plan.Order() {
		if !r.ws.Has(t.Key()) {
			began := time.Now()
			for _, h := range r.engine.hooks {
				h.TermStart(ctx, r.runID, t.Key())
			}
			err := r.computeTerm(ctx, t)
			elapsed := time.Since(began)
			for _, h := range r.engine.hooks {
				h.TermEnd(ctx, r.runID, t.Key(), elapsed, err)
			}
			if err != nil {
				return err
			}
		}

		deps, err := g.Dependencies(t)
		if err != nil {
			return err
		}
		for _, d := range deps {
			if evicted := r.ws.Release(d.Key()); evicted {
				logger.Debug("Evicted term output.", "term", d.Key())
			}
		}
	}
	logger.Debug("Execution complete.", "live_values", r.ws.Len())
	return nil
}

// computeTerm materializes one node: gathers input windows from the
// workspace, invokes the typed compute step once per output session, masks
// non-alive cells to the term's missing value, and stores the result.
func (r *run) computeTerm(ctx context.Context, t *term.Term) error {
	compute := t.Compute()
	if compute == nil {
		return &workspace.MissingDependencyError{Term: t.Key()}
	}

	termSessions, err := r.plan.TermSessions(t)
	if err != nil {
		return err
	}
	rows := len(termSessions)
	nAssets := len(r.dom.Assets)
	window := t.Window()
	extra := r.plan.ExtraRows(t)

	ins := t.Inputs()
	inVals := make([]Value, len(ins))
	offsets := make([]int, len(ins))
	for i, in := range ins {
		raw, err := r.ws.Get(in.Key())
		if err != nil {
			return err
		}
		inVals[i] = raw.(Value)
		offsets[i] = r.plan.ExtraRows(in) - extra - (window - 1)
		if offsets[i] < 0 {
			return fmt.Errorf("engine: internal: input %s underprovisioned for %s (offset %d)",
				in.Key(), t.Key(), offsets[i])
		}
	}

	root := term.Alive()
	rawAlive, err := r.ws.Get(root.Key())
	if err != nil {
		return err
	}
	aliveGrid := rawAlive.(Value).Bool
	aliveOffset := r.plan.ExtraRows(root) - extra

	var maskVal Value
	maskOffset := 0
	if m := t.Mask(); m != nil {
		raw, err := r.ws.Get(m.Key())
		if err != nil {
			return err
		}
		maskVal = raw.(Value)
		maskOffset = r.plan.ExtraRows(m) - extra
	}

	out := newOutput(t, rows, nAssets)
	in := &term.ComputeInput{Assets: r.dom.Assets, Inputs: make([]term.Window, len(ins))}

	for row := 0; row < rows; row++ {
		for i, input := range ins {
			end := row + offsets[i] + window - 1
			w, err := inputWindow(inVals[i], input, end, window)
			if err != nil {
				return &ComputeError{Term: t.Key(), Cause: err}
			}
			in.Inputs[i] = w
		}

		in.Session = termSessions[row]
		in.Alive = aliveRow(aliveGrid, maskVal, row+aliveOffset, row+maskOffset, nAssets, t.Mask() != nil)
		out.bind(in, row)

		if err := compute(ctx, in); err != nil {
			return &ComputeError{Term: t.Key(), Cause: err}
		}

		for j := 0; j < nAssets; j++ {
			if !in.Alive[j] {
				out.setMissing(row, j, t)
			}
		}
	}

	r.ws.Put(t.Key(), out.value())
	return nil
}

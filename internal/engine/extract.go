package engine

import (
	"context"
	"fmt"

	"github.com/nakulbh/factorgrid/internal/ctxlog"
	"github.com/nakulbh/factorgrid/internal/table"
	"github.com/nakulbh/factorgrid/internal/term"
)

// extract applies the screen as a pure post-filter and emits the narrow
// table: one row per (session, instrument) pair that is alive and passes
// the screen, restricted to the requested sessions and columns. Screening
// removes rows only; it never alters computed values.
func (r *run) extract(ctx context.Context) (*table.Table, error) {
	logger := ctxlog.FromContext(ctx)
	sessions := r.plan.Sessions()
	assets := r.dom.Assets
	cols := r.pipe.Columns()

	rawAlive, err := r.ws.Get(term.Alive().Key())
	if err != nil {
		return nil, err
	}
	aliveGrid := rawAlive.(Value).Bool
	aliveExtra := r.plan.ExtraRows(term.Alive())

	screen := r.pipe.Screen()
	var screenVal Value
	screenExtra := 0
	if screen != nil {
		raw, err := r.ws.Get(screen.Key())
		if err != nil {
			return nil, err
		}
		screenVal = raw.(Value)
		if screenVal.Bool == nil {
			return nil, fmt.Errorf("engine: screen %s produced no bool grid", screen.Key())
		}
		screenExtra = r.plan.ExtraRows(screen)
	}

	colVals := make([]Value, len(cols))
	colExtras := make([]int, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		raw, err := r.ws.Get(c.Term.Key())
		if err != nil {
			return nil, err
		}
		colVals[i] = raw.(Value)
		colExtras[i] = r.plan.ExtraRows(c.Term)
		names[i] = c.Name
	}

	tbl := table.New(names)
	for i, sess := range sessions {
		for j, asset := range assets {
			// Lifetimes exclusion comes first: a dead instrument emits no
			// row regardless of the screen's outcome.
			if !aliveGrid.At(aliveExtra+i, j) {
				continue
			}
			if screen != nil && !screenVal.Bool.At(screenExtra+i, j) {
				continue
			}
			values := make([]any, len(cols))
			for k, c := range cols {
				values[k] = cellValue(colVals[k], c.Term, colExtras[k]+i, j)
			}
			if err := tbl.Append(sess, asset, values); err != nil {
				return nil, err
			}
		}
	}
	logger.Debug("Extraction complete.", "rows", len(tbl.Rows), "columns", len(names))
	return tbl, nil
}

// cellValue reads one typed cell from a pinned output value.
func cellValue(v Value, t *term.Term, row, col int) any {
	switch t.DType() {
	case term.Float64:
		return v.Float.At(row, col)
	case term.Bool:
		return v.Bool.At(row, col)
	default:
		return v.Label.At(row, col)
	}
}

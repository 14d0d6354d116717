package engine

import (
	"fmt"

	"github.com/nakulbh/factorgrid/internal/adjarray"
	"github.com/nakulbh/factorgrid/internal/grid"
	"github.com/nakulbh/factorgrid/internal/term"
)

// output is the in-progress grid for one term, typed by its dtype.
type output struct {
	dtype term.DType
	flt   *grid.Grid[float64]
	bol   *grid.Grid[bool]
	lbl   *grid.Grid[string]
}

func newOutput(t *term.Term, rows, cols int) *output {
	o := &output{dtype: t.DType()}
	switch t.DType() {
	case term.Float64:
		o.flt = grid.New[float64](rows, cols)
	case term.Bool:
		o.bol = grid.New[bool](rows, cols)
	case term.Label:
		o.lbl = grid.New[string](rows, cols)
	}
	return o
}

// bind points the compute input's output row at this output's row views.
func (o *output) bind(in *term.ComputeInput, row int) {
	in.OutFloat, in.OutBool, in.OutLabel = nil, nil, nil
	switch o.dtype {
	case term.Float64:
		in.OutFloat = o.flt.Row(row)
	case term.Bool:
		in.OutBool = o.bol.Row(row)
	case term.Label:
		in.OutLabel = o.lbl.Row(row)
	}
}

// setMissing overwrites one cell with the term's missing value. Non-alive
// cells always read as missing regardless of what the compute step wrote.
func (o *output) setMissing(row, col int, t *term.Term) {
	switch o.dtype {
	case term.Float64:
		o.flt.Set(row, col, t.Missing())
	case term.Bool:
		o.bol.Set(row, col, false)
	case term.Label:
		o.lbl.Set(row, col, "")
	}
}

// value wraps the finished grid as a workspace value. Float grids become
// adjustment-free adjusted arrays so every float input shares one window
// path.
func (o *output) value() Value {
	switch o.dtype {
	case term.Float64:
		arr, err := adjarray.New(o.flt, nil)
		if err != nil {
			// Unreachable: nil adjustments cannot fail validation.
			panic(err)
		}
		return Value{Float: arr}
	case term.Bool:
		return Value{Bool: o.bol}
	default:
		return Value{Label: o.lbl}
	}
}

// inputWindow cuts one trailing window from an input value, replaying
// adjustments for float inputs. Windows are fresh copies; compute steps
// may scribble on them freely.
func inputWindow(v Value, input *term.Term, end, length int) (term.Window, error) {
	switch input.DType() {
	case term.Float64:
		if v.Float == nil {
			return term.Window{}, fmt.Errorf("input %s: no float data in workspace", input.Key())
		}
		w, err := v.Float.Window(end, length)
		if err != nil {
			return term.Window{}, err
		}
		return term.Window{Float: w}, nil
	case term.Bool:
		if v.Bool == nil {
			return term.Window{}, fmt.Errorf("input %s: no bool data in workspace", input.Key())
		}
		return term.Window{Bool: v.Bool.SliceRows(end-length+1, end+1)}, nil
	default:
		if v.Label == nil {
			return term.Window{}, fmt.Errorf("input %s: no label data in workspace", input.Key())
		}
		return term.Window{Label: v.Label.SliceRows(end-length+1, end+1)}, nil
	}
}

// aliveRow combines the lifetimes row with the term's own mask row. The
// slice is freshly allocated per row so compute steps cannot corrupt the
// stored mask.
func aliveRow(alive *grid.Grid[bool], mask Value, aliveIdx, maskIdx, cols int, masked bool) []bool {
	out := make([]bool, cols)
	copy(out, alive.Row(aliveIdx))
	if masked && mask.Bool != nil {
		maskRow := mask.Bool.Row(maskIdx)
		for j := 0; j < cols; j++ {
			out[j] = out[j] && maskRow[j]
		}
	}
	return out
}

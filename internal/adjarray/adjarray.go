// Package adjarray provides the rolling-window abstraction over raw
// historical values plus point-in-time corrections (splits, dividends,
// restatements). Raw data is stored as reported; each requested window gets
// the corrections known by its last session folded in lazily, which is what
// keeps every window point-in-time correct without rewriting history.
package adjarray

import (
	"fmt"
	"sort"

	"github.com/nakulbh/factorgrid/internal/grid"
)

// AdjKind selects how an adjustment mutates the rows it covers.
type AdjKind int

const (
	// Multiply scales covered cells, e.g. a split ratio.
	Multiply AdjKind = iota
	// Overwrite replaces covered cells, e.g. a restatement.
	Overwrite
)

// String returns the lowercase kind name.
func (k AdjKind) String() string {
	switch k {
	case Multiply:
		return "multiply"
	case Overwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("adjkind(%d)", int(k))
	}
}

// Adjustment is one correction that became known at ApplyRow. It rewrites
// rows [FirstRow, LastRow] of column Col, which by construction lie before
// ApplyRow: values from ApplyRow onward are already post-event as reported.
type Adjustment struct {
	Kind     AdjKind
	FirstRow int
	LastRow  int
	Col      int
	Value    float64
	ApplyRow int
}

// Array is a raw value grid plus its adjustments, sorted by apply row. It
// is immutable after construction; windows are always fresh copies.
type Array struct {
	raw  *grid.Grid[float64]
	adjs []Adjustment
}

// New validates the adjustments against the grid shape and returns an
// Array. The input slice is copied and sorted by (ApplyRow, FirstRow, Col)
// so replay order is deterministic even when several corrections share an
// apply row.
func New(raw *grid.Grid[float64], adjs []Adjustment) (*Array, error) {
	sorted := append([]Adjustment(nil), adjs...)
	for _, a := range sorted {
		if a.FirstRow < 0 || a.LastRow >= raw.Rows() || a.FirstRow > a.LastRow {
			return nil, fmt.Errorf("adjarray: adjustment rows [%d,%d] out of range [0,%d)",
				a.FirstRow, a.LastRow, raw.Rows())
		}
		if a.Col < 0 || a.Col >= raw.Cols() {
			return nil, fmt.Errorf("adjarray: adjustment col %d out of range [0,%d)", a.Col, raw.Cols())
		}
		if a.ApplyRow <= a.LastRow {
			return nil, fmt.Errorf("adjarray: apply row %d not after covered rows [%d,%d]",
				a.ApplyRow, a.FirstRow, a.LastRow)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ApplyRow != sorted[j].ApplyRow {
			return sorted[i].ApplyRow < sorted[j].ApplyRow
		}
		if sorted[i].FirstRow != sorted[j].FirstRow {
			return sorted[i].FirstRow < sorted[j].FirstRow
		}
		return sorted[i].Col < sorted[j].Col
	})
	return &Array{raw: raw, adjs: sorted}, nil
}

// Rows returns the number of raw rows.
func (a *Array) Rows() int { return a.raw.Rows() }

// Cols returns the number of instrument columns.
func (a *Array) Cols() int { return a.raw.Cols() }

// Adjustments returns the sorted adjustments. The slice must not be mutated.
func (a *Array) Adjustments() []Adjustment { return a.adjs }

// At returns the raw as-reported value at (row, col), with no adjustments
// replayed. Point-in-time reads of computed outputs go through At, since
// computed grids carry no adjustments.
func (a *Array) At(row, col int) float64 { return a.raw.At(row, col) }

// Window returns a copy of the length rows ending at row end, with every
// adjustment whose apply row falls strictly after the window's first row
// and at or before end folded in, in ascending apply order. Adjustments at
// or before the first row are already baked into earlier history and are
// never re-applied, which keeps overlapping windows replay-consistent.
func (a *Array) Window(end, length int) (*grid.Grid[float64], error) {
	if length < 1 {
		return nil, fmt.Errorf("adjarray: window length %d must be >= 1", length)
	}
	first := end - length + 1
	if first < 0 || end >= a.raw.Rows() {
		return nil, fmt.Errorf("adjarray: window [%d,%d] out of range [0,%d)", first, end, a.raw.Rows())
	}
	w := a.raw.SliceRows(first, end+1)
	for _, adj := range a.adjs {
		if adj.ApplyRow <= first {
			continue
		}
		if adj.ApplyRow > end {
			break
		}
		apply(w, adj, first)
	}
	return w, nil
}

// apply folds one adjustment into a window copy whose row 0 is absolute row
// first. Covered rows outside the window are clipped.
func apply(w *grid.Grid[float64], adj Adjustment, first int) {
	lo := adj.FirstRow - first
	hi := adj.LastRow - first
	if lo < 0 {
		lo = 0
	}
	if hi > w.Rows()-1 {
		hi = w.Rows() - 1
	}
	for r := lo; r <= hi; r++ {
		switch adj.Kind {
		case Multiply:
			w.Set(r, adj.Col, w.At(r, adj.Col)*adj.Value)
		case Overwrite:
			w.Set(r, adj.Col, adj.Value)
		}
	}
}

// Traverse returns an iterator over successive overlapping windows of the
// given length, the first ending at row length-1 and the last at the final
// raw row.
func (a *Array) Traverse(length int) (*WindowIter, error) {
	if length < 1 || length > a.raw.Rows() {
		return nil, fmt.Errorf("adjarray: traverse length %d out of range [1,%d]", length, a.raw.Rows())
	}
	return &WindowIter{arr: a, length: length, end: length - 1}, nil
}

// WindowIter yields consecutive adjusted windows. Each Next call returns a
// fresh copy; callers may retain or mutate it freely.
type WindowIter struct {
	arr    *Array
	length int
	end    int
}

// Next returns the next window and true, or nil and false when exhausted.
func (it *WindowIter) Next() (*grid.Grid[float64], bool) {
	if it.end >= it.arr.raw.Rows() {
		return nil, false
	}
	w, err := it.arr.Window(it.end, it.length)
	if err != nil {
		// Unreachable: bounds are maintained by the iterator.
		panic(err)
	}
	it.end++
	return w, true
}

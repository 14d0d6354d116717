// Package grid provides a dense two-dimensional grid keyed by
// (session row, instrument column). It is the common carrier for factor
// output (float64), filter and lifetimes masks (bool), and classifier
// labels (string).
package grid

import "fmt"

// Grid is a dense row-major 2D array. The zero value is unusable; create
// instances with New or NewFilled.
type Grid[T any] struct {
	rows int
	cols int
	data []T
}

// New creates a rows×cols grid filled with the zero value of T.
func New[T any](rows, cols int) *Grid[T] {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("grid: negative dimensions %dx%d", rows, cols))
	}
	return &Grid[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
}

// NewFilled creates a rows×cols grid with every cell set to fill.
func NewFilled[T any](rows, cols int, fill T) *Grid[T] {
	g := New[T](rows, cols)
	for i := range g.data {
		g.data[i] = fill
	}
	return g
}

// FromRows creates a grid from a slice of equal-length rows. The data is
// copied, so the caller keeps ownership of the input.
func FromRows[T any](rows [][]T) (*Grid[T], error) {
	if len(rows) == 0 {
		return New[T](0, 0), nil
	}
	cols := len(rows[0])
	g := New[T](len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("grid: row %d has %d columns, want %d", i, len(row), cols)
		}
		copy(g.data[i*cols:(i+1)*cols], row)
	}
	return g, nil
}

// Rows returns the number of rows.
func (g *Grid[T]) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid[T]) Cols() int { return g.cols }

// At returns the value at (row, col).
func (g *Grid[T]) At(row, col int) T {
	g.check(row, col)
	return g.data[row*g.cols+col]
}

// Set stores v at (row, col).
func (g *Grid[T]) Set(row, col int, v T) {
	g.check(row, col)
	g.data[row*g.cols+col] = v
}

// Row returns a view of the given row. Mutating the returned slice mutates
// the grid.
func (g *Grid[T]) Row(row int) []T {
	if row < 0 || row >= g.rows {
		panic(fmt.Sprintf("grid: row %d out of range [0,%d)", row, g.rows))
	}
	return g.data[row*g.cols : (row+1)*g.cols]
}

// Clone returns a deep copy of the grid.
func (g *Grid[T]) Clone() *Grid[T] {
	out := New[T](g.rows, g.cols)
	copy(out.data, g.data)
	return out
}

// SliceRows returns a deep copy of rows [from, to).
func (g *Grid[T]) SliceRows(from, to int) *Grid[T] {
	if from < 0 || to > g.rows || from > to {
		panic(fmt.Sprintf("grid: slice [%d,%d) out of range [0,%d]", from, to, g.rows))
	}
	out := New[T](to-from, g.cols)
	copy(out.data, g.data[from*g.cols:to*g.cols])
	return out
}

func (g *Grid[T]) check(row, col int) {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		panic(fmt.Sprintf("grid: index (%d,%d) out of range %dx%d", row, col, g.rows, g.cols))
	}
}

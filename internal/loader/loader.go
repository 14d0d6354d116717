// Package loader defines how raw historical columns reach the engine. The
// engine is agnostic to storage; it only requires that a loader return an
// adjusted array matching the requested (dates × instruments) shape.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/nakulbh/factorgrid/internal/adjarray"
)

// Loader serves one raw column over the requested sessions and instrument
// universe. Calls are synchronous; retry and backoff are the loader's
// responsibility, not the engine's.
type Loader interface {
	Load(ctx context.Context, column string, dates []time.Time, assets []string) (*adjarray.Array, error)
}

// ShapeError reports a loader result whose shape does not match the
// request. This is the data-error class of the engine's taxonomy: the run
// aborts, nothing partial survives.
type ShapeError struct {
	Column   string
	WantRows int
	WantCols int
	GotRows  int
	GotCols  int
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("loader: column %q returned %dx%d, want %dx%d",
		e.Column, e.GotRows, e.GotCols, e.WantRows, e.WantCols)
}

// CheckShape validates a loader result against the request it answered.
func CheckShape(column string, arr *adjarray.Array, wantRows, wantCols int) error {
	if arr.Rows() != wantRows || arr.Cols() != wantCols {
		return &ShapeError{
			Column:   column,
			WantRows: wantRows,
			WantCols: wantCols,
			GotRows:  arr.Rows(),
			GotCols:  arr.Cols(),
		}
	}
	return nil
}

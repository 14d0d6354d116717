package term

import (
	"context"
	"time"

	"github.com/nakulbh/factorgrid/internal/grid"
)

// Window is one input's trailing data for a single output session: exactly
// the consumer's window length of rows, the last row being the output
// session itself. Exactly one field is non-nil, matching the input's dtype.
type Window struct {
	Float *grid.Grid[float64]
	Bool  *grid.Grid[bool]
	Label *grid.Grid[string]
}

// ComputeInput is the per-session invocation payload for a compute step.
// The engine guarantees no row later than Session is ever present in
// Inputs, which is what makes results point-in-time correct.
type ComputeInput struct {
	// Session is the output session being computed.
	Session time.Time
	// Assets is the instrument universe, one entry per output column.
	Assets []string
	// Alive marks which instruments are tradable this session. Compute
	// steps may ignore it; the engine masks dead cells afterwards anyway.
	Alive []bool
	// Inputs holds one trailing window per declared input, in input order.
	Inputs []Window

	// Exactly one of the following is non-nil, matching the term's dtype.
	// The compute step fills it for every asset column.
	OutFloat []float64
	OutBool  []bool
	OutLabel []string
}

// ComputeFunc is the typed compute step of a term. It is invoked once per
// output session and must fill the output row. Errors abort the whole run,
// wrapped with the term's identity.
type ComputeFunc func(ctx context.Context, in *ComputeInput) error

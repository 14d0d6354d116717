// Package hooks exposes per-run and per-term instrumentation. Hooks are
// diagnostic only: they observe start/end timing and outcomes and have no
// effect on computed results.
package hooks

import (
	"context"
	"time"
)

// Hook receives lifecycle notifications from the engine. Within one run
// the calls are strictly sequential; implementations must tolerate
// interleaved calls from concurrent runs distinguished by runID.
type Hook interface {
	RunStart(ctx context.Context, runID string, terms int)
	RunEnd(ctx context.Context, runID string, elapsed time.Duration, err error)
	TermStart(ctx context.Context, runID, termKey string)
	TermEnd(ctx context.Context, runID, termKey string, elapsed time.Duration, err error)
}

package hooks

import (
	"context"
	"time"

	"github.com/nakulbh/factorgrid/internal/ctxlog"
)

// SlogHook logs run and term lifecycle events through the context logger.
type SlogHook struct{}

// NewSlog returns a logging hook.
func NewSlog() *SlogHook { return &SlogHook{} }

// RunStart implements Hook.
func (h *SlogHook) RunStart(ctx context.Context, runID string, terms int) {
	ctxlog.FromContext(ctx).Info("Run started.", "run_id", runID, "terms", terms)
}

// RunEnd implements Hook.
func (h *SlogHook) RunEnd(ctx context.Context, runID string, elapsed time.Duration, err error) {
	logger := ctxlog.FromContext(ctx)
	if err != nil {
		logger.Error("Run failed.", "run_id", runID, "elapsed", elapsed, "error", err)
		return
	}
	logger.Info("Run completed.", "run_id", runID, "elapsed", elapsed)
}

// TermStart implements Hook.
func (h *SlogHook) TermStart(ctx context.Context, runID, termKey string) {
	ctxlog.FromContext(ctx).Debug("Term started.", "run_id", runID, "term", termKey)
}

// TermEnd implements Hook.
func (h *SlogHook) TermEnd(ctx context.Context, runID, termKey string, elapsed time.Duration, err error) {
	logger := ctxlog.FromContext(ctx)
	if err != nil {
		logger.Error("Term failed.", "run_id", runID, "term", termKey, "elapsed", elapsed, "error", err)
		return
	}
	logger.Debug("Term completed.", "run_id", runID, "term", termKey, "elapsed", elapsed)
}

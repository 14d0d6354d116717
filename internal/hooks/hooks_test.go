package hooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestMetricsHookCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewMetrics(reg)
	ctx := context.Background()

	h.RunStart(ctx, "run-1", 5)
	h.TermEnd(ctx, "run-1", "term-a", 3*time.Millisecond, nil)
	h.TermEnd(ctx, "run-1", "term-b", 3*time.Millisecond, errors.New("boom"))
	h.RunEnd(ctx, "run-1", 10*time.Millisecond, nil)
	h.RunEnd(ctx, "run-2", 10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(h.runsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.runsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.termsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.termsTotal.WithLabelValues("error")))
}

func TestTraceHookBalancesSpans(t *testing.T) {
	h := NewTrace(noop.NewTracerProvider().Tracer("test"))
	ctx := context.Background()

	h.RunStart(ctx, "run-1", 2)
	h.TermStart(ctx, "run-1", "term-a")
	h.TermEnd(ctx, "run-1", "term-a", time.Millisecond, nil)
	h.TermStart(ctx, "run-1", "term-b")
	h.TermEnd(ctx, "run-1", "term-b", time.Millisecond, errors.New("boom"))
	h.RunEnd(ctx, "run-1", time.Millisecond, nil)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Empty(t, h.spans, "every started span must be ended and forgotten")
}

func TestTraceHookToleratesUnknownRun(t *testing.T) {
	h := NewTrace(noop.NewTracerProvider().Tracer("test"))
	ctx := context.Background()

	// End events for runs never started must be no-ops.
	h.RunEnd(ctx, "ghost", time.Millisecond, nil)
	h.TermEnd(ctx, "ghost", "term", time.Millisecond, nil)
}

package hooks

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceHook emits one OpenTelemetry span per run and one child span per
// term, so slow nodes show up directly in traces.
type TraceHook struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]spanCtx
}

type spanCtx struct {
	ctx  context.Context
	span trace.Span
}

// NewTrace returns a tracing hook using the given tracer.
func NewTrace(tracer trace.Tracer) *TraceHook {
	return &TraceHook{tracer: tracer, spans: make(map[string]spanCtx)}
}

// RunStart implements Hook.
func (h *TraceHook) RunStart(ctx context.Context, runID string, terms int) {
	spanned, span := h.tracer.Start(ctx, "engine.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.terms", terms),
		))
	h.mu.Lock()
	defer h.mu.Unlock()
	h.spans[runID] = spanCtx{ctx: spanned, span: span}
}

// RunEnd implements Hook.
func (h *TraceHook) RunEnd(ctx context.Context, runID string, elapsed time.Duration, err error) {
	h.mu.Lock()
	sc, ok := h.spans[runID]
	delete(h.spans, runID)
	h.mu.Unlock()
	if !ok {
		return
	}
	if err != nil {
		sc.span.RecordError(err)
		sc.span.SetStatus(codes.Error, err.Error())
	}
	sc.span.End()
}

// TermStart implements Hook.
func (h *TraceHook) TermStart(ctx context.Context, runID, termKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	parent := ctx
	if sc, ok := h.spans[runID]; ok {
		parent = sc.ctx
	}
	spanned, span := h.tracer.Start(parent, "engine.term",
		trace.WithAttributes(attribute.String("term.key", termKey)))
	h.spans[runID+"|"+termKey] = spanCtx{ctx: spanned, span: span}
}

// TermEnd implements Hook.
func (h *TraceHook) TermEnd(ctx context.Context, runID, termKey string, elapsed time.Duration, err error) {
	h.mu.Lock()
	sc, ok := h.spans[runID+"|"+termKey]
	delete(h.spans, runID+"|"+termKey)
	h.mu.Unlock()
	if !ok {
		return
	}
	if err != nil {
		sc.span.RecordError(err)
		sc.span.SetStatus(codes.Error, err.Error())
	}
	sc.span.End()
}

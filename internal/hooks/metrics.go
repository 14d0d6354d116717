package hooks

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsHook records run and term timings as Prometheus metrics.
type MetricsHook struct {
	runsTotal   *prometheus.CounterVec
	runSeconds  prometheus.Histogram
	termsTotal  *prometheus.CounterVec
	termSeconds prometheus.Histogram
}

// NewMetrics registers the engine metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *MetricsHook {
	factory := promauto.With(reg)
	return &MetricsHook{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factorgrid",
			Name:      "runs_total",
			Help:      "Completed engine runs by outcome.",
		}, []string{"outcome"}),
		runSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "factorgrid",
			Name:      "run_seconds",
			Help:      "Wall time of one engine run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		termsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factorgrid",
			Name:      "terms_total",
			Help:      "Computed terms by outcome.",
		}, []string{"outcome"}),
		termSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "factorgrid",
			Name:      "term_seconds",
			Help:      "Compute time of one term over one run's sessions.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}

// RunStart implements Hook.
func (h *MetricsHook) RunStart(ctx context.Context, runID string, terms int) {}

// RunEnd implements Hook.
func (h *MetricsHook) RunEnd(ctx context.Context, runID string, elapsed time.Duration, err error) {
	h.runsTotal.WithLabelValues(outcome(err)).Inc()
	h.runSeconds.Observe(elapsed.Seconds())
}

// TermStart implements Hook.
func (h *MetricsHook) TermStart(ctx context.Context, runID, termKey string) {}

// TermEnd implements Hook.
func (h *MetricsHook) TermEnd(ctx context.Context, runID, termKey string, elapsed time.Duration, err error) {
	h.termsTotal.WithLabelValues(outcome(err)).Inc()
	h.termSeconds.Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

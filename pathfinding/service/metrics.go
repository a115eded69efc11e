package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/wricardo/gridpath/pathfinding/search"
)

// Search outcomes used as the "outcome" label.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// Metrics collects Prometheus metrics for searches. All metrics are
// namespaced with "gridpath_":
//
//   - searches_total (counter, label outcome)
//   - search_duration_seconds (histogram, label outcome)
//   - finalized_cells (histogram): cells finalized per completed search
//   - trace_steps (histogram): visualization steps per completed search
//   - grid_cells (histogram): size of searched grids
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	searches   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	finalized  prometheus.Histogram
	traceSteps prometheus.Histogram
	gridCells  prometheus.Histogram
}

// NewMetrics creates and registers the search metrics with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	sizeBuckets := prometheus.ExponentialBuckets(4, 4, 9) // 4 .. 262144

	return &Metrics{
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridpath",
			Name:      "searches_total",
			Help:      "Searches handled, by outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridpath",
			Name:      "search_duration_seconds",
			Help:      "Wall time spent per search, including abandoned searches",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs .. ~26s
		}, []string{"outcome"}),
		finalized: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridpath",
			Name:      "finalized_cells",
			Help:      "Cells finalized per completed search",
			Buckets:   sizeBuckets,
		}),
		traceSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridpath",
			Name:      "trace_steps",
			Help:      "Visualization steps recorded per completed search",
			Buckets:   sizeBuckets,
		}),
		gridCells: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridpath",
			Name:      "grid_cells",
			Help:      "Number of cells in searched grids",
			Buckets:   sizeBuckets,
		}),
	}
}

// ObserveSearch records a completed search.
func (m *Metrics) ObserveSearch(res *search.Result, cells int, elapsed time.Duration) {
	if m == nil || res == nil {
		return
	}
	outcome := OutcomeNotFound
	if res.Found {
		outcome = OutcomeFound
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	m.finalized.Observe(float64(res.Finalized))
	m.traceSteps.Observe(float64(len(res.Trace)))
	m.gridCells.Observe(float64(cells))
}

// ObserveFailure records a search that produced no result.
func (m *Metrics) ObserveFailure(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
}

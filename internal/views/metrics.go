package views

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for view recomputation.
type Metrics struct {
	// Views actually computed, by view
	Recomputations *prometheus.CounterVec

	// Views served from the memo cache, by view
	MemoHits *prometheus.CounterVec

	// Compute latency by view
	ComputeLatency *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered with the default registry.
// Call it once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		Recomputations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hivdash_view_recomputations_total",
			Help: "Total view computations by view",
		}, []string{"view"}),

		MemoHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hivdash_view_memo_hits_total",
			Help: "Total dirty views served from the memo cache by view",
		}, []string{"view"}),

		ComputeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hivdash_view_compute_duration_seconds",
			Help:    "Duration of a single view computation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"view"}),
	}
}

// ObserveCompute records one computation of view.
func (m *Metrics) ObserveCompute(view ViewKey, d time.Duration) {
	if m != nil {
		m.Recomputations.WithLabelValues(string(view)).Inc()
		m.ComputeLatency.WithLabelValues(string(view)).Observe(d.Seconds())
	}
}

// IncrementMemoHit records a memo cache hit for view.
func (m *Metrics) IncrementMemoHit(view ViewKey) {
	if m != nil {
		m.MemoHits.WithLabelValues(string(view)).Inc()
	}
}

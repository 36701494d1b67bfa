package source

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hivdash_source_load_duration_seconds",
		Help:    "Duration of loading one source table",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"source", "backend"})

	loadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hivdash_source_load_errors_total",
		Help: "Total failed source loads",
	}, []string{"source", "backend"})

	loadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hivdash_source_bytes_read_total",
		Help: "Bytes read from source files",
	}, []string{"source"})
)

func observeLoad(source, backend string, d time.Duration, err error) {
	loadDuration.WithLabelValues(source, backend).Observe(d.Seconds())
	if err != nil {
		loadErrors.WithLabelValues(source, backend).Inc()
	}
}

func observeBytes(source string, n int64) {
	loadBytes.WithLabelValues(source).Add(float64(n))
}

package render

// limiter.go bounds how many charts are rasterized at once.
//
// Rendering a PNG is CPU-bound and allocates a full canvas, so a burst of
// chart requests is queued on a semaphore instead of running unbounded.
// Requests that cannot get a slot within maxWait fail with ErrBusy.

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrBusy is returned when every render slot stays occupied for maxWait.
var ErrBusy = errors.New("chart renderer busy")

// DefaultMaxWait is how long to wait for a render slot before rejecting.
const DefaultMaxWait = 5 * time.Second

var (
	rendersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hivdash_chart_renders_active",
		Help: "Charts currently being rendered",
	})
	rendersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hivdash_chart_renders_rejected_total",
		Help: "Chart requests rejected because every render slot was busy",
	})
)

// Limiter caps concurrent renders with a channel semaphore.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewLimiter allows at most maxConcurrent renders at once; zero means one
// per CPU.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a render slot. The caller must Release it when done.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		rendersActive.Inc()
		return nil
	case <-waitCtx.Done():
		// caller gone vs. slots exhausted
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rendersRejected.Inc()
		return ErrBusy
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	rendersActive.Dec()
	<-l.slots
}

// LimiterStatus is a snapshot of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state for /healthz.
func (l *Limiter) Status() LimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

package views

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JonMunkholm/hivdash/internal/core"
)

// DefaultCacheSize is the memo capacity per view when none is configured.
const DefaultCacheSize = 32

var tracer = otel.Tracer("github.com/JonMunkholm/hivdash/internal/views")

// Session is one user's filter state with a memo cache per view.
// Views are recomputed only when a declared dependency changed.
// A Session is safe for concurrent use; calls are serialized.
type Session struct {
	mu sync.Mutex

	engine  *Engine
	catalog *core.Catalog
	metrics *Metrics

	state   FilterState
	dirty   map[ViewKey]bool
	memos   map[ViewKey]*memo
	results map[ViewKey]Result

	computes map[ViewKey]int
	hits     map[ViewKey]int
}

// SessionOptions configures a new session.
type SessionOptions struct {
	Defaults  Defaults
	CacheSize int
	Metrics   *Metrics // optional
}

// NewSession creates a session in the default state with every view dirty.
func NewSession(e *Engine, cat *core.Catalog, opts SessionOptions) *Session {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	s := &Session{
		engine:   e,
		catalog:  cat,
		metrics:  opts.Metrics,
		state:    DefaultState(cat, opts.Defaults),
		dirty:    make(map[ViewKey]bool, len(Graph)),
		memos:    make(map[ViewKey]*memo, len(Graph)),
		results:  make(map[ViewKey]Result, len(Graph)),
		computes: make(map[ViewKey]int, len(Graph)),
		hits:     make(map[ViewKey]int, len(Graph)),
	}
	for _, d := range Graph {
		s.dirty[d.Key] = true
		s.memos[d.Key] = newMemo(opts.CacheSize)
	}
	return s
}

// State returns the current filter state.
func (s *Session) State() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply merges p into the filter state. Values outside the catalog are
// clamped or replaced and reported in the returned error, which wraps
// core.ErrInvalidFilterValue; the rest of the patch still applies.
// Only views depending on a changed field are marked dirty.
func (s *Session) Apply(p Patch) ([]Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed, err := s.state.apply(p, s.catalog)
	s.state = next
	for _, d := range Graph {
		if d.DependsOn(changed) {
			s.dirty[d.Key] = true
		}
	}
	return changed, err
}

// Dirty returns the views awaiting recomputation, in graph order.
func (s *Session) Dirty() []ViewKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ViewKey
	for _, d := range Graph {
		if s.dirty[d.Key] {
			out = append(out, d.Key)
		}
	}
	return out
}

// Refresh brings every dirty view up to date and returns the refreshed
// results in graph order. Context cancellation is checked between views;
// views not reached stay dirty.
func (s *Session) Refresh(ctx context.Context) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "views.Session.Refresh")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Result
	for _, d := range Graph {
		if !s.dirty[d.Key] {
			continue
		}
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return out, err
		}
		out = append(out, s.refreshView(d))
	}
	span.SetAttributes(attribute.Int("views.refreshed", len(out)))
	return out, nil
}

// View returns the current result of one view, refreshing it first if dirty.
func (s *Session) View(ctx context.Context, key ViewKey) (Result, error) {
	d, err := Lookup(string(key))
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty[d.Key] {
		return s.refreshView(d), nil
	}
	return s.results[d.Key], nil
}

// Results returns the current result of every view, refreshing dirty ones.
func (s *Session) Results(ctx context.Context) ([]Result, error) {
	if _, err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Result, 0, len(Graph))
	for _, d := range Graph {
		out = append(out, s.results[d.Key])
	}
	return out, nil
}

// Computations returns how many times view was actually computed.
func (s *Session) Computations(view ViewKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computes[view]
}

// MemoHits returns how many dirty refreshes of view were served from memo.
func (s *Session) MemoHits(view ViewKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[view]
}

// refreshView recomputes d or serves it from memo. Caller holds s.mu.
func (s *Session) refreshView(d ViewDef) Result {
	key := d.memoKey(s.state)
	m := s.memos[d.Key]

	r, ok := m.get(key)
	if ok {
		s.hits[d.Key]++
		s.metrics.IncrementMemoHit(d.Key)
	} else {
		start := time.Now()
		r = d.Compute(s.engine, s.state)
		s.metrics.ObserveCompute(d.Key, time.Since(start))
		s.computes[d.Key]++
		m.put(key, r)
	}

	s.results[d.Key] = r
	delete(s.dirty, d.Key)
	return r
}

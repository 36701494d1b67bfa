// Package session keeps one views.Session per dashboard visitor.
//
// Sessions live in memory and expire after a period of inactivity. When a
// Store is configured, each session's filter state is also written through
// to it so that a visitor keeps their selections across restarts and
// replicas; the memo caches are always rebuilt locally.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/views"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hivdash_sessions_active",
		Help: "Number of in-memory dashboard sessions",
	})

	sessionsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hivdash_sessions_evicted_total",
		Help: "Sessions removed from memory by reason",
	}, []string{"reason"}) // reason: "expired", "capacity"
)

// Config controls session lifetime and capacity.
type Config struct {
	TTL           time.Duration // Idle time before a session is dropped (default: 30m)
	MaxSessions   int           // In-memory sessions before the least recently used is evicted (default: 10000)
	SweepInterval time.Duration // How often expired sessions are removed (default: 1m)
	Views         views.SessionOptions
}

type entry struct {
	session  *views.Session
	lastSeen time.Time
}

// Manager owns every live session. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	engine  *views.Engine
	catalog *core.Catalog
	cfg     Config
	store   Store

	now func() time.Time
}

// NewManager creates a manager. store may be nil.
func NewManager(engine *views.Engine, catalog *core.Catalog, cfg Config, store Store) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 10000
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Manager{
		sessions: make(map[string]*entry),
		engine:   engine,
		catalog:  catalog,
		cfg:      cfg,
		store:    store,
		now:      time.Now,
	}
}

// Get returns the session for id, creating one when id is unknown, expired
// or malformed. The returned id is the one the caller must use from now on.
func (m *Manager) Get(ctx context.Context, id string) (string, *views.Session) {
	if _, err := uuid.Parse(id); err != nil {
		id = ""
	}

	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		if m.live(e) {
			e.lastSeen = m.now()
			m.mu.Unlock()
			return id, e.session
		}
		delete(m.sessions, id)
		sessionsEvicted.WithLabelValues("expired").Inc()
		activeSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	s := views.NewSession(m.engine, m.catalog, m.cfg.Views)
	if id != "" {
		m.restore(ctx, id, s)
	} else {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request for the same id may have won the race.
	if e, ok := m.sessions[id]; ok && m.live(e) {
		e.lastSeen = m.now()
		return id, e.session
	}
	if _, ok := m.sessions[id]; !ok && len(m.sessions) >= m.cfg.MaxSessions {
		m.evictOldest()
	}
	m.sessions[id] = &entry{session: s, lastSeen: m.now()}
	activeSessions.Set(float64(len(m.sessions)))
	return id, s
}

// live reports whether e was seen within the TTL. Caller holds m.mu.
func (m *Manager) live(e *entry) bool {
	return m.now().Sub(e.lastSeen) < m.cfg.TTL
}

// restore applies a persisted filter state to s. Values no longer valid
// against the catalog are clamped by the session.
func (m *Manager) restore(ctx context.Context, id string, s *views.Session) {
	if m.store == nil {
		return
	}
	state, ok, err := m.store.Load(ctx, id)
	if err != nil {
		slog.Warn("session restore failed", "session_id", id, "error", err)
		return
	}
	if !ok {
		return
	}
	if _, err := s.Apply(views.PatchFrom(state)); err != nil {
		slog.Warn("restored session state adjusted", "session_id", id, "error", err)
	}
}

// Save writes the session's filter state through to the store, if any.
func (m *Manager) Save(ctx context.Context, id string, s *views.Session) error {
	if m.store == nil {
		return nil
	}
	return m.store.Save(ctx, id, s.State(), m.cfg.TTL)
}

// Delete removes a session from memory and from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	activeSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// Len returns the number of in-memory sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if !m.live(e) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		sessionsEvicted.WithLabelValues("expired").Add(float64(removed))
	}
	activeSessions.Set(float64(len(m.sessions)))
	return removed
}

// Run sweeps expired sessions every SweepInterval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	slog.Info("session sweeper started",
		"ttl", m.cfg.TTL,
		"max_sessions", m.cfg.MaxSessions,
		"interval", m.cfg.SweepInterval,
	)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n, "active", m.Len())
			}
		}
	}
}

// evictOldest drops the least recently used session. Caller holds m.mu.
func (m *Manager) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range m.sessions {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
		sessionsEvicted.WithLabelValues("capacity").Inc()
	}
}

// ErrStoreUnavailable is returned by stores that cannot reach their backend.
var ErrStoreUnavailable = errors.New("session store unavailable")

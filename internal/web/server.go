// Package web provides the HTTP server of the HIV dashboard: the HTML page,
// the JSON view API and the PNG chart endpoints.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/hivdash/internal/config"
	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/render"
	"github.com/JonMunkholm/hivdash/internal/session"
	"github.com/JonMunkholm/hivdash/internal/views"
	mw "github.com/JonMunkholm/hivdash/internal/web/middleware"
)

// HealthCheck probes one backend. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the server is built from.
type Deps struct {
	Config   *config.Config
	Engine   *views.Engine
	Catalog  *core.Catalog
	Registry *core.Registry
	Sessions *session.Manager

	// Health lists optional backends reported by /healthz, by name.
	Health map[string]HealthCheck
}

// Server is the HTTP server for the dashboard.
type Server struct {
	cfg         *config.Config
	engine      *views.Engine
	catalog     *core.Catalog
	sessions    *session.Manager
	health      map[string]HealthCheck
	attribution map[string]string
	renders     *render.Limiter

	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(d Deps) *Server {
	s := &Server{
		cfg:         d.Config,
		engine:      d.Engine,
		catalog:     d.Catalog,
		sessions:    d.Sessions,
		health:      d.Health,
		attribution: attributions(d.Registry),
		renders:     render.NewLimiter(d.Config.Render.MaxConcurrent, d.Config.Render.MaxWait),
		router:      chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// attributions picks the provider line shown under each dashboard panel.
func attributions(reg *core.Registry) map[string]string {
	out := make(map[string]string)
	if reg == nil {
		return out
	}
	for panel, key := range map[string]string{
		"country": core.SourceDeathsNewCases,
		"gender":  core.SourcePrevalenceMale,
		"geo":     core.SourceAdultsInfected,
	} {
		if def, ok := reg.Get(key); ok {
			out[panel] = def.Info.Attribution
		}
	}
	return out
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.With(mw.APIKeyAuth(s.cfg.Security.MetricsAPIKeys)).Handle("/metrics", promhttp.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession)

		// Page
		r.Get("/", s.handleDashboard)
		r.Post("/", s.handleApplyForm)

		// Charts
		charts := r.With()
		if s.cfg.Rate.Enabled {
			charts = r.With(s.newLimiter(s.cfg.Rate.ChartLimit).middleware)
		}
		charts.Get("/charts/{view}.png", s.handleChart)

		// API routes
		r.Route("/api", func(r chi.Router) {
			r.Get("/catalog", s.handleCatalog)
			r.Get("/filters", s.handleGetFilters)
			r.Post("/filters", s.handleApplyFilters)
			r.Get("/views", s.handleViews)
			r.Get("/views/{view}", s.handleView)
			r.Delete("/session", s.handleResetSession)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Inline styles only; charts are same-origin PNGs
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; script-src 'none'")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// newLimiter creates a per-IP limiter stopped on Shutdown.
func (s *Server) newLimiter(perMinute int) *rateLimiter {
	l := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, l)
	return l
}

// rateLimiter implements a fixed-window request budget per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every window until stopped.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

func (rl *rateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if rl.now().Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
// RemoteAddr has already been resolved by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(mw.ClientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window/time.Second)))
			respondErrorJSON(w, core.MapError(errRateLimited), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var errRateLimited = errors.New("rate limit exceeded")

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// Package config loads the dashboard's configuration from environment
// variables, applies defaults and validates everything on startup so a
// misconfigured process fails before it ingests any data.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Database DatabaseConfig
	Session  SessionConfig
	Redis    RedisConfig
	Rate     RateLimitConfig
	Render   RenderConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Defaults DefaultsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8050)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8050"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// Data drivers.
const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
)

// DataConfig selects where the seven source tables are read from.
type DataConfig struct {
	// Driver is "csv" (files under Dir) or "postgres" (tables in DATABASE_URL)
	Driver string `env:"DATA_DRIVER" default:"csv"`

	// Dir is the directory holding the CSV downloads (default: data)
	Dir string `env:"DATA_DIR" default:"data"`

	// Manifest overrides the embedded source manifest when set
	Manifest string `env:"DATA_MANIFEST"`

	// LoadTimeout bounds startup ingestion of all sources (default: 2m)
	LoadTimeout time.Duration `env:"DATA_LOAD_TIMEOUT" default:"2m"`
}

// DatabaseConfig holds database connection settings. Only used by the
// postgres data driver.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"8"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// SessionConfig controls per-visitor filter sessions.
type SessionConfig struct {
	TTL           time.Duration `env:"SESSION_TTL" default:"30m"`
	MaxSessions   int           `env:"SESSION_MAX" default:"10000"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1m"`

	// CacheSize is the memo capacity per view per session (default: 32)
	CacheSize int `env:"SESSION_VIEW_CACHE_SIZE" default:"32"`

	CookieName   string `env:"SESSION_COOKIE_NAME" default:"hivdash_session"`
	CookieSecure bool   `env:"SESSION_COOKIE_SECURE" default:"false"`
}

// RedisConfig holds the optional session store connection. An empty URL
// keeps filter state in memory only.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// RenderConfig bounds concurrent chart rasterization.
type RenderConfig struct {
	// MaxConcurrent is the number of charts rendered at once (default: 0, one per CPU)
	MaxConcurrent int `env:"RENDER_MAX_CONCURRENT" default:"0"`

	// MaxWait is how long a chart request waits for a render slot (default: 5s)
	MaxWait time.Duration `env:"RENDER_MAX_WAIT" default:"5s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// ChartLimit is requests per minute for PNG chart endpoints (default: 120)
	ChartLimit int `env:"RATE_LIMIT_CHARTS" default:"120"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// MetricsAPIKeys protects /metrics with X-API-Key when non-empty
	MetricsAPIKeys []string `env:"METRICS_API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DefaultsConfig holds the initial filter selections of a new session.
type DefaultsConfig struct {
	Country          string `env:"DEFAULT_COUNTRY" default:"Vietnam"`
	HighlightCountry string `env:"DEFAULT_HIGHLIGHT_COUNTRY" default:"Viet Nam"`
	ScatterYear      int    `env:"DEFAULT_SCATTER_YEAR" default:"1990"`
	Cohort           string `env:"DEFAULT_COHORT" default:"adult"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

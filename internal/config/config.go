// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables with defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Dataset source kinds.
const (
	SourceDemo     = "demo"
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Dataset  DatasetConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings. Only used when the
// dataset source is postgres.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// DatasetConfig holds settings for the served dataset.
type DatasetConfig struct {
	// Source selects where records come from: demo, csv or postgres (default: demo)
	Source string `env:"DATASET_SOURCE" default:"demo"`

	// Preset names the built-in field list to serve (default: customers)
	Preset string `env:"DATASET_PRESET" default:"customers"`

	// CSVPath is the file read when Source is csv
	CSVPath string `env:"DATASET_CSV_PATH"`

	// Table and KeyColumn locate the rows when Source is postgres
	Table     string `env:"DATASET_TABLE"`
	KeyColumn string `env:"DATASET_KEY_COLUMN" default:"id"`

	// LoadLimit caps the rows read from postgres, 0 for no limit (default: 0)
	LoadLimit int `env:"DATASET_LOAD_LIMIT" default:"0"`

	// DemoRows is the number of generated records for the demo source (default: 500)
	DemoRows int `env:"DATASET_DEMO_ROWS" default:"500"`

	// DemoSeed makes generated records reproducible (default: 1)
	DemoSeed int64 `env:"DATASET_DEMO_SEED" default:"1"`

	// PageSize is the default window size for record requests (default: 50)
	PageSize int `env:"DATASET_PAGE_SIZE" default:"50"`

	// MaxSorts is the maximum number of sort columns (default: 3)
	MaxSorts int `env:"DATASET_MAX_SORTS" default:"3"`

	// PartialSortThreshold is the record count above which windows are
	// partially sorted (default: 5000)
	PartialSortThreshold int `env:"DATASET_PARTIAL_SORT_THRESHOLD" default:"5000"`

	// EventBuffer is the channel buffer per event subscriber (default: 64)
	EventBuffer int `env:"DATASET_EVENT_BUFFER" default:"64"`

	// ReloadInterval reloads the records periodically, 0 to disable (default: 0s)
	ReloadInterval time.Duration `env:"DATASET_RELOAD_INTERVAL" default:"0s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the rate limit per client IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards mutating endpoints with the X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

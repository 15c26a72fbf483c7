// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables (and an optional .env file)
// with sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Import    ImportConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	History   HistoryConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`

	// WriteTimeout must outlast IMPORT_TIMEOUT; reports are written after the run.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"6m"`

	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig holds store settings.
type DatabaseConfig struct {
	// Driver selects the store: postgres or memory (default: postgres)
	Driver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// URL is the PostgreSQL connection string. DB_URL is accepted as a fallback.
	URL string `env:"DATABASE_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`

	// LockTimeout caps lock waits so a row blocked by a dry run fails
	// instead of waiting for the whole run (0 = server default)
	LockTimeout time.Duration `env:"DB_LOCK_TIMEOUT" envDefault:"5s"`

	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// ImportConfig holds import engine settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted CSV size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" envDefault:"10485760"`

	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" envDefault:"4"`
	MaxWaitTime   time.Duration `env:"IMPORT_MAX_WAIT_TIME" envDefault:"30s"`

	// Timeout bounds a single import run (default: 5m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" envDefault:"5m"`

	// ErrorDisplayLimit is how many row errors are rendered before "+N more"
	ErrorDisplayLimit int `env:"IMPORT_ERROR_DISPLAY_LIMIT" envDefault:"10"`

	// CodeMaxLength caps generated campus codes, type codes and group short names
	CodeMaxLength int `env:"IMPORT_CODE_MAX_LENGTH" envDefault:"10"`

	PlaceholderEmailDomain string `env:"IMPORT_PLACEHOLDER_EMAIL_DOMAIN" envDefault:"placeholder.invalid"`

	// MappingsDir holds <profile>.yaml column mapping overrides
	MappingsDir string `env:"IMPORT_MAPPINGS_DIR"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" envDefault:"60"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	RequireAPIKey bool     `env:"REQUIRE_API_KEY" envDefault:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// HistoryConfig holds import history retention settings.
type HistoryConfig struct {
	RetentionDays int           `env:"HISTORY_RETENTION_DAYS" envDefault:"180"`
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" envDefault:"24h"`
}

// TelemetryConfig holds metrics and tracing settings.
type TelemetryConfig struct {
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath    string `env:"METRICS_PATH" envDefault:"/metrics"`
	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Package config defines service configuration structures and loading hooks.
package config

import (
	"time"

	"github.com/okian/ehb/internal/domain/ratelimit"
)

// RateLimit overrides one rate limit profile. Zero fields keep the
// built-in value.
type RateLimit struct {
	WindowMS  int64  `koanf:"window_ms"`
	Max       int64  `koanf:"max"`
	KeyPrefix string `koanf:"key_prefix"`
	Message   string `koanf:"message"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFile, when set, writes rotated JSON logs to this file as well as
	// to stdout.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr              string `koanf:"addr"`
	ShutdownTimeoutMS int    `koanf:"shutdown_timeout_ms"`

	// CounterBackend selects the rate limit store: redis or memory.
	CounterBackend string `koanf:"counter_backend"`
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisTimeoutMS int    `koanf:"redis_timeout_ms"`

	// DatabaseDriver is sqlite or postgres.
	DatabaseDriver       string `koanf:"database_driver"`
	DatabaseDSN          string `koanf:"database_dsn"`
	// DatabaseMaxOpenConns caps the postgres pool. SQLite always uses one.
	DatabaseMaxOpenConns int `koanf:"database_max_open_conns"`

	// AuthSecret signs bearer tokens (HS256). Empty disables the
	// authenticated routes: every token is rejected.
	AuthSecret string `koanf:"auth_secret"`
	AuthIssuer string `koanf:"auth_issuer"`

	// NATSURL, when set, publishes flag events to NotifySubject.
	NATSURL             string  `koanf:"nats_url"`
	NotifySubject       string  `koanf:"notify_subject"`
	NotifyWorkers       int     `koanf:"notify_workers"`
	NotifyQueueSize     int     `koanf:"notify_queue_size"`
	NotifyRatePerSecond float64 `koanf:"notify_rate_per_second"`

	// DedupeSize bounds the in-memory duplicate report cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RewardBaseRate is the share of stake paid as base reward.
	RewardBaseRate float64 `koanf:"reward_base_rate"`

	RateLimits       map[string]RateLimit `koanf:"rate_limits"`
	ReportThresholds map[string]int64     `koanf:"report_thresholds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8080",
		ShutdownTimeoutMS:    10_000,
		CounterBackend:       BackendMemory,
		RedisAddr:            "localhost:6379",
		RedisTimeoutMS:       250,
		DatabaseDriver:       "sqlite",
		DatabaseDSN:          "ehb.db",
		DatabaseMaxOpenConns: 10,
		NotifySubject:        "ehb.franchise.flagged",
		NotifyWorkers:        2,
		NotifyQueueSize:      1024,
		NotifyRatePerSecond:  50,
		DedupeSize:           50_000,
		RewardBaseRate:       0.05,
		RateLimits:           map[string]RateLimit{},
		ReportThresholds:     map[string]int64{},
	}
}

// Counter backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// RedisTimeout returns the per-call Redis timeout.
func (c *Config) RedisTimeout() time.Duration {
	return time.Duration(c.RedisTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// RateLimitProfiles converts the configured overrides into profile
// overrides for the limiter.
func (c *Config) RateLimitProfiles() []ratelimit.Profile {
	out := make([]ratelimit.Profile, 0, len(c.RateLimits))
	for name, rl := range c.RateLimits {
		out = append(out, ratelimit.Profile{
			Name:      name,
			Window:    time.Duration(rl.WindowMS) * time.Millisecond,
			Max:       rl.Max,
			KeyPrefix: rl.KeyPrefix,
			Message:   rl.Message,
		})
	}
	return out
}

package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/ehb/internal/domain/moderation"
	"github.com/okian/ehb/internal/domain/ratelimit"
)

// EnvConfigFile names the environment variable holding the YAML file path.
const EnvConfigFile = "EHB_CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if EHB_CONFIG is set
//  3. env (prefix EHB_)
func Load(_ context.Context) (*Config, error) {
	cfg := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// EHB_REDIS_ADDR -> redis_addr. Keys stay flat so underscores match
	// the koanf tags; maps are only settable from the file.
	envProvider := env.Provider("EHB_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "ehb_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log_level %q must be debug, info, warn or error", c.LogLevel)
	}
	if strings.TrimSpace(c.Addr) == "" {
		return invalid("addr must not be empty")
	}
	if c.ShutdownTimeoutMS <= 0 {
		return invalid("shutdown_timeout_ms must be positive")
	}

	switch c.CounterBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return invalid("redis_addr is required for the redis backend")
		}
		if c.RedisTimeoutMS <= 0 {
			return invalid("redis_timeout_ms must be positive")
		}
	default:
		return invalid("counter_backend %q must be redis or memory", c.CounterBackend)
	}

	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return invalid("database_driver %q must be sqlite or postgres", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return invalid("database_dsn must not be empty")
	}
	if c.DatabaseMaxOpenConns <= 0 {
		return invalid("database_max_open_conns must be positive")
	}

	if c.AuthSecret != "" && len(c.AuthSecret) < 16 {
		return invalid("auth_secret must be at least 16 bytes")
	}

	if c.NotifyWorkers <= 0 {
		return invalid("notify_workers must be positive")
	}
	if c.NotifyQueueSize <= 0 {
		return invalid("notify_queue_size must be positive")
	}
	if c.NotifyRatePerSecond < 0 {
		return invalid("notify_rate_per_second must not be negative")
	}
	if c.RewardBaseRate <= 0 || math.IsInf(c.RewardBaseRate, 0) || math.IsNaN(c.RewardBaseRate) {
		return invalid("reward_base_rate must be a positive number")
	}

	for name, rl := range c.RateLimits {
		if rl.WindowMS < 0 || rl.Max < 0 {
			return invalid("rate_limits.%s: window_ms and max must not be negative", name)
		}
	}
	if _, err := ratelimit.NewProfiles(c.RateLimitProfiles()...); err != nil {
		return invalid("rate_limits: %v", err)
	}
	if _, err := moderation.NewPolicy(c.ReportThresholds); err != nil {
		return invalid("report_thresholds: %v", err)
	}
	return nil
}

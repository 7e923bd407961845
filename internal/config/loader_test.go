package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/ehb/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars(t)

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.NotifyWorkers, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When environment variables are set", func() {
			t.Setenv("EHB_ADDR", ":9090")
			t.Setenv("EHB_COUNTER_BACKEND", "redis")
			t.Setenv("EHB_REDIS_ADDR", "redis:6379")
			t.Setenv("EHB_REDIS_DB", "2")
			t.Setenv("EHB_REWARD_BASE_RATE", "0.07")
			t.Setenv("EHB_AUTH_SECRET", "0123456789abcdef0123")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they should override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.CounterBackend, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "redis:6379")
				convey.So(cfg.RedisDB, convey.ShouldEqual, 2)
				convey.So(cfg.RewardBaseRate, convey.ShouldEqual, 0.07)
			})
		})

		convey.Convey("When a YAML file is provided", func() {
			path := writeConfigFile(t, `
addr: ":7070"
notify_workers: 4
rate_limits:
  strict:
    max: 10
    window_ms: 30000
  burst:
    max: 5
    window_ms: 1000
report_thresholds:
  video: 2
`)
			t.Setenv("EHB_CONFIG", path)
			t.Setenv("EHB_NOTIFY_WORKERS", "8")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.NotifyWorkers, convey.ShouldEqual, 8)
				convey.So(cfg.RateLimits["strict"].Max, convey.ShouldEqual, 10)
				convey.So(cfg.RateLimits["burst"].WindowMS, convey.ShouldEqual, 1000)
				convey.So(cfg.ReportThresholds["video"], convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the file does not exist", func() {
			t.Setenv("EHB_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)

			convey.Convey("Then it should be a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a number cannot be parsed", func() {
			t.Setenv("EHB_NOTIFY_WORKERS", "many")
			_, err := config.Load(ctx)

			convey.Convey("Then it should be a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty addr", func(c *config.Config) { c.Addr = "" }},
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }},
		{"unknown backend", func(c *config.Config) { c.CounterBackend = "memcached" }},
		{"redis without addr", func(c *config.Config) { c.CounterBackend = "redis"; c.RedisAddr = "" }},
		{"unknown driver", func(c *config.Config) { c.DatabaseDriver = "mysql" }},
		{"empty dsn", func(c *config.Config) { c.DatabaseDSN = "" }},
		{"no database connections", func(c *config.Config) { c.DatabaseMaxOpenConns = 0 }},
		{"short secret", func(c *config.Config) { c.AuthSecret = "short" }},
		{"no workers", func(c *config.Config) { c.NotifyWorkers = 0 }},
		{"no queue", func(c *config.Config) { c.NotifyQueueSize = -1 }},
		{"zero base rate", func(c *config.Config) { c.RewardBaseRate = 0 }},
		{"negative limit", func(c *config.Config) { c.RateLimits["strict"] = config.RateLimit{Max: -1} }},
		{"incomplete new profile", func(c *config.Config) { c.RateLimits["burst"] = config.RateLimit{Max: 3} }},
		{"zero threshold", func(c *config.Config) { c.ReportThresholds["ad"] = 0 }},
	}

	convey.Convey("Given invalid configurations", t, func() {
		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "EHB_") {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ehb.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

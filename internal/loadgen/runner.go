package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ehb/pkg/logger"
)

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	if err := cfg.validate(); err != nil {
		return Stats{}, err
	}
	stats := Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting report load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("kind", cfg.Kind),
		logger.Int("targets", cfg.Targets),
		logger.Int("reports", cfg.Reports),
		logger.Int("repeats", cfg.Repeats),
		logger.Int("workers", cfg.Workers))

	c := newClient(&cfg)
	if err := c.checkHealth(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Identifiers are unique per run so repeated runs start from zero.
	runID := uuid.NewString()[:8]
	subs := generate(&cfg, runID)

	if err := submitAll(ctx, &cfg, c, subs, &stats); err != nil {
		return stats, fmt.Errorf("report submission failed: %w", err)
	}
	stats.Duration = time.Since(stats.StartTime)

	log.Info(ctx, "report load run finished",
		logger.Int64("submitted", stats.Submitted),
		logger.Int64("created", stats.Created),
		logger.Int64("duplicate", stats.Duplicate),
		logger.Int64("rateLimited", stats.RateLimited),
		logger.Int64("failed", stats.Failed),
		logger.Int64("flagged", stats.Flagged),
		logger.String("duration", stats.Duration.String()))

	return stats, verify(&cfg, stats)
}

// verify checks the flag count. Rate limited or failed submissions make the
// expected count unknowable, so verification is skipped for them.
func verify(cfg *Config, stats Stats) error {
	if cfg.Threshold <= 0 || stats.RateLimited > 0 || stats.Failed > 0 {
		return nil
	}
	if want := expectedFlags(cfg); stats.Flagged != want {
		return fmt.Errorf("flagged %d targets, want %d", stats.Flagged, want)
	}
	if want := int64(cfg.Targets * cfg.Repeats); stats.Duplicate != want {
		return fmt.Errorf("saw %d duplicates, want %d", stats.Duplicate, want)
	}
	return nil
}

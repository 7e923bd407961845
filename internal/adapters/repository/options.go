package repository

import (
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// Option applies a configuration option to the GormStore.
type Option func(*GormStore)

// WithClock injects the clock used for flag timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *GormStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxOpenConns caps the connection pool. SQLite is always capped at one.
func WithMaxOpenConns(n int) Option {
	return func(s *GormStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithQueryLogging turns on gorm's own SQL logging.
func WithQueryLogging(enabled bool) Option {
	return func(s *GormStore) {
		if enabled {
			s.gormLog = gormlogger.Default.LogMode(gormlogger.Info)
		}
	}
}

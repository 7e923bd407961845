package service

import (
	"time"

	"github.com/okian/ehb/internal/adapters/mq/worker"
	"github.com/okian/ehb/internal/adapters/repository"
	"github.com/okian/ehb/internal/domain/franchise"
	"github.com/okian/ehb/internal/domain/ratelimit"
	"github.com/okian/ehb/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the flag event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the report deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithNotifyRate caps outgoing notifications per second.
func WithNotifyRate(perSecond float64) Option {
	return func(s *Service) {
		if perSecond > 0 {
			s.notifyRate = perSecond
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRedis selects the Redis counter backend.
func WithRedis(addr, password string, db int, timeout time.Duration) Option {
	return func(s *Service) {
		if addr == "" {
			return
		}
		s.redisAddr = addr
		s.redisPassword = password
		s.redisDB = db
		s.redisTimeout = timeout
	}
}

// WithCounter injects a rate limit counter. It takes precedence over WithRedis
// and is not closed by Stop.
func WithCounter(c ratelimit.Counter) Option {
	return func(s *Service) {
		if c != nil {
			s.counter = c
		}
	}
}

// WithRateLimitProfiles overrides the built-in rate limit profiles.
func WithRateLimitProfiles(profiles ...ratelimit.Profile) Option {
	return func(s *Service) {
		s.profileOverrides = append(s.profileOverrides, profiles...)
	}
}

// WithDatabase selects the persistence driver and DSN.
func WithDatabase(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.dbDriver = driver
		}
		if dsn != "" {
			s.dbDSN = dsn
		}
	}
}

// WithDatabasePool caps open database connections and, when queryLog is set,
// logs every SQL statement.
func WithDatabasePool(maxOpenConns int, queryLog bool) Option {
	return func(s *Service) {
		s.dbMaxOpenConns = maxOpenConns
		s.dbQueryLog = queryLog
	}
}

// WithStore injects a store. It is not closed by Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithNATS publishes flag notifications to a NATS server.
func WithNATS(url, subject string) Option {
	return func(s *Service) {
		s.natsURL = url
		if subject != "" {
			s.notifySubject = subject
		}
	}
}

// WithNotifier injects the flag notifier. It is not closed by Stop.
func WithNotifier(n worker.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRewardBaseRate sets the share of stake paid as base reward.
func WithRewardBaseRate(rate float64) Option {
	return func(s *Service) {
		if rate > 0 {
			s.baseRate = rate
		}
	}
}

// WithReportThresholds overrides per kind flag thresholds.
func WithReportThresholds(thresholds map[string]int64) Option {
	return func(s *Service) {
		s.thresholds = thresholds
	}
}

// WithFranchiseRules overrides the earnings thresholds.
func WithFranchiseRules(r franchise.Rules) Option {
	return func(s *Service) {
		s.rules = r
	}
}

// WithClock sets the time source used for flagging and uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

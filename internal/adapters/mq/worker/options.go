package worker

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/ehb/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkers sets the number of workers.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithRetries sets how many times a failed delivery is retried.
func WithRetries(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.retries = n
		}
	}
}

// WithBackoff sets the base delay between retries. The delay grows linearly.
func WithBackoff(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.backoff = d
		}
	}
}

// WithRate caps deliveries per second across the pool. Zero or negative
// means unlimited.
func WithRate(perSecond float64) Option {
	return func(p *Pool) {
		if perSecond > 0 {
			burst := int(perSecond)
			if burst < 1 {
				burst = 1
			}
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

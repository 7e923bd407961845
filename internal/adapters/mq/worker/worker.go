// Package worker drains flag events from the queue and delivers them to a
// Notifier.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/ehb/internal/domain/model"
	"github.com/okian/ehb/pkg/logger"
	"github.com/okian/ehb/pkg/metrics"
)

const (
	defaultWorkerCount = 2
	defaultRetries     = 3
	defaultBackoff     = 200 * time.Millisecond
)

// Event abstracts what workers read off the queue.
type Event = model.FlagEvent

// Notifier delivers a flag event to franchise operators.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue() <-chan Event
}

type closer interface{ Close() error }

// Pool runs a fixed number of workers against one queue. Deliveries from
// all workers share one rate limiter.
type Pool struct {
	queue    Queue
	notifier Notifier
	size     int
	retries  int
	backoff  time.Duration
	limiter  *rate.Limiter
	logger   logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPool creates a worker pool. It does not start any goroutine.
func NewPool(q Queue, n Notifier, opts ...Option) *Pool {
	p := &Pool{
		queue:    q,
		notifier: n,
		size:     defaultWorkerCount,
		retries:  defaultRetries,
		backoff:  defaultBackoff,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Start launches the workers. They run until the queue is closed and
// drained, or until Shutdown gives up waiting. Cancelling ctx does not stop
// them; only Shutdown does, so queued events survive a cancelled caller.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, p.logger.Named("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(p.size)
}

func (p *Pool) run(ctx context.Context, log logger.Logger) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-p.queue.Dequeue():
			if !ok {
				return
			}
			if err := p.deliver(ctx, e); err != nil {
				log.Error(ctx, "flag notification dropped",
					logger.String("kind", e.Kind),
					logger.String("target_id", e.TargetID),
					logger.Error(err))
			}
		}
	}
}

// deliver sends e with bounded retries.
func (p *Pool) deliver(ctx context.Context, e Event) error {
	var err error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff * time.Duration(attempt)):
			}
		}
		if werr := p.limiter.Wait(ctx); werr != nil {
			return werr
		}

		start := time.Now()
		if err = p.notifier.Notify(ctx, e); err == nil {
			metrics.RecordNotificationSent(float64(time.Since(start).Microseconds()) / 1000)
			return nil
		}
		metrics.RecordNotificationError()
	}
	metrics.RecordErrorByType("notification_failed", "high")
	return fmt.Errorf("notify after %d attempts: %w", p.retries+1, err)
}

// Shutdown closes the queue, lets the workers drain it, and waits until
// they exit or ctx expires. Pending deliveries are cancelled on timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		if c, ok := p.queue.(closer); ok {
			if cerr := c.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out")
			err = fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
		if p.cancel != nil {
			p.cancel()
		}
		<-done
		metrics.UpdateWorkerCount(0)
	})
	return err
}

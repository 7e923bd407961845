package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/okian/ehb/internal/adapters/mq/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   []Event
	failures int32
}

func (n *recordingNotifier) Notify(_ context.Context, e Event) error {
	if atomic.AddInt32(&n.failures, -1) >= 0 {
		return errors.New("broker unavailable")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type blockingNotifier struct{}

func (blockingNotifier) Notify(ctx context.Context, _ Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pool over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		n := &recordingNotifier{}
		p := NewPool(q, n, WithWorkers(3), WithBackoff(time.Millisecond))

		Convey("Then the worker count should be configurable", func() {
			So(p.Size(), ShouldEqual, 3)
			So(NewPool(q, n).Size(), ShouldEqual, defaultWorkerCount)
			So(p.Shutdown(ctx), ShouldBeNil)
		})

		Convey("When events are queued and the pool shuts down", func() {
			p.Start(ctx)
			for _, id := range []string{"a", "b", "c", "d", "e"} {
				So(q.Enqueue(ctx, Event{Kind: "video", TargetID: id}), ShouldBeNil)
			}
			err := p.Shutdown(ctx)

			Convey("Then every event should be delivered before exit", func() {
				So(err, ShouldBeNil)
				So(n.Count(), ShouldEqual, 5)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})

		Convey("When the start context is cancelled before shutdown", func() {
			p = NewPool(q, n, WithWorkers(1), WithBackoff(time.Millisecond))
			startCtx, cancel := context.WithCancel(ctx)
			p.Start(startCtx)
			cancel()
			for i := 0; i < 10; i++ {
				So(q.Enqueue(ctx, Event{Kind: "ad", TargetID: string(rune('a' + i))}), ShouldBeNil)
			}

			shutdownCtx, stop := context.WithTimeout(ctx, 5*time.Second)
			defer stop()
			err := p.Shutdown(shutdownCtx)

			Convey("Then the queue should still be drained", func() {
				So(err, ShouldBeNil)
				So(n.Count(), ShouldEqual, 10)
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the notifier fails transiently", func() {
			n.failures = 2
			p.Start(ctx)
			So(q.Enqueue(ctx, Event{Kind: "ad", TargetID: "x"}), ShouldBeNil)
			So(p.Shutdown(ctx), ShouldBeNil)

			Convey("Then the delivery should be retried", func() {
				So(n.Count(), ShouldEqual, 1)
			})
		})

		Convey("When the notifier keeps failing", func() {
			n.failures = 100
			p := NewPool(q, n, WithWorkers(1), WithRetries(1), WithBackoff(time.Millisecond))
			p.Start(ctx)
			So(q.Enqueue(ctx, Event{Kind: "ad", TargetID: "x"}), ShouldBeNil)
			So(p.Shutdown(ctx), ShouldBeNil)

			Convey("Then the event should be dropped after the retries", func() {
				So(n.Count(), ShouldEqual, 0)
				So(atomic.LoadInt32(&n.failures), ShouldEqual, 98)
			})
		})
	})

	Convey("Given a rate-limited pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		n := &recordingNotifier{}
		p := NewPool(q, n, WithWorkers(2), WithRate(20))

		Convey("When a burst larger than the rate is queued", func() {
			p.Start(ctx)
			for i := 0; i < 8; i++ {
				So(q.Enqueue(ctx, Event{Kind: "ad", TargetID: "t"}), ShouldBeNil)
			}
			So(p.Shutdown(ctx), ShouldBeNil)

			Convey("Then all events should still be delivered", func() {
				So(n.Count(), ShouldEqual, 8)
			})
		})
	})

	Convey("Given a notifier that never returns", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		p := NewPool(q, blockingNotifier{}, WithWorkers(1), WithRetries(0))
		p.Start(ctx)
		So(q.Enqueue(ctx, Event{Kind: "ad", TargetID: "stuck"}), ShouldBeNil)

		Convey("When shutdown times out", func() {
			sctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			err := p.Shutdown(sctx)

			Convey("Then it should report the timeout and stop the workers", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})
}

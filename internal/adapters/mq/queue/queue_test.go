package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func flag(id string) Event {
	return Event{Kind: "ad", TargetID: id, ReportCount: 3, Threshold: 3, FlaggedAt: time.Unix(0, 0)}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity 2", t, func() {
		q := NewInMemoryQueue(WithCapacity(2))

		Convey("Then it should report its capacity", func() {
			So(q.Cap(), ShouldEqual, 2)
			So(q.Len(), ShouldEqual, 0)
			So(q.IsClosed(), ShouldBeFalse)
		})

		Convey("When it is filled beyond capacity", func() {
			So(q.Enqueue(ctx, flag("a")), ShouldBeNil)
			So(q.Enqueue(ctx, flag("b")), ShouldBeNil)
			err := q.Enqueue(ctx, flag("c"))

			Convey("Then the overflow should be rejected without blocking", func() {
				So(errors.Is(err, ErrFull), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 2)
			})

			Convey("Then events should come out in order", func() {
				So((<-q.Dequeue()).TargetID, ShouldEqual, "a")
				So((<-q.Dequeue()).TargetID, ShouldEqual, "b")
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue should fail with the context error", func() {
				So(errors.Is(q.Enqueue(cctx, flag("a")), context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When it is closed with events pending", func() {
			So(q.Enqueue(ctx, flag("a")), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new events are refused but pending ones drain", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.Enqueue(ctx, flag("b")), ErrClosed), ShouldBeTrue)

				e, ok := <-q.Dequeue()
				So(ok, ShouldBeTrue)
				So(e.TargetID, ShouldEqual, "a")

				_, ok = <-q.Dequeue()
				So(ok, ShouldBeFalse)
			})
		})
	})
}

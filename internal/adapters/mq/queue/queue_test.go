package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/guestrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func job(guestID string) model.RefreshJob {
	return model.RefreshJob{ID: "job-" + guestID, GuestID: guestID, RequestedAt: time.Now()}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(2))

		So(q.Len(), ShouldEqual, 0)
		So(q.Cap(), ShouldEqual, 2)

		Convey("When a job is enqueued and dequeued", func() {
			So(q.Enqueue(ctx, job("g1")), ShouldBeNil)
			So(q.Len(), ShouldEqual, 1)

			got := <-q.Dequeue(ctx)

			Convey("Then the same job comes out", func() {
				So(got.GuestID, ShouldEqual, "g1")
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, job("g1")), ShouldBeNil)
			So(q.Enqueue(ctx, job("g2")), ShouldBeNil)
			err := q.Enqueue(ctx, job("g3"))

			Convey("Then further jobs are rejected", func() {
				So(errors.Is(err, ErrFull), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := q.Enqueue(cctx, job("g1"))

			Convey("Then the job is rejected", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestInMemoryQueue_Close(t *testing.T) {
	Convey("Given a queue holding one job", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(4))
		So(q.Enqueue(ctx, job("g1")), ShouldBeNil)

		Convey("When it is closed", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new jobs are rejected and queued ones drain", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.Enqueue(ctx, job("g2")), ErrClosed), ShouldBeTrue)

				var drained []string
				for j := range q.Dequeue(ctx) {
					drained = append(drained, j.GuestID)
				}
				So(drained, ShouldResemble, []string{"g1"})
			})
		})
	})
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	Convey("Given concurrent producers", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(1000))

		var wg sync.WaitGroup
		for p := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 50 {
					_ = q.Enqueue(ctx, job(fmt.Sprintf("g-%d-%d", p, i)))
				}
			}()
		}
		wg.Wait()
		So(q.Close(), ShouldBeNil)

		Convey("Then every job is delivered exactly once", func() {
			seen := map[string]bool{}
			for j := range q.Dequeue(ctx) {
				So(seen[j.GuestID], ShouldBeFalse)
				seen[j.GuestID] = true
			}
			So(len(seen), ShouldEqual, 500)
		})
	})
}

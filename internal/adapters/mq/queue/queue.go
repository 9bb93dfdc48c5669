// Package queue buffers background refresh jobs.
//
// Enqueue never blocks: a full or closed queue rejects the job so callers can
// report it back instead of stalling a request.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Job is the payload flowing through the queue.
type Job = model.RefreshJob

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. Returns ErrFull or ErrClosed when rejected.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue returns a channel that receives jobs as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len() int

	// Cap returns the queue capacity.
	Cap() int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateQueue(0, q.capacity)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, job Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected()
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueRejected()
		return fmt.Errorf("enqueue %s: %w", job.GuestID, ctx.Err())
	default:
	}

	select {
	case q.jobs <- job:
		metrics.UpdateQueue(len(q.jobs), q.capacity)
		return nil
	default:
		metrics.RecordQueueRejected()
		return ErrFull
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for job := range q.jobs {
			select {
			case out <- job:
				metrics.UpdateQueue(len(q.jobs), q.capacity)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len() int {
	return len(q.jobs)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting jobs. Already queued jobs are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Package worker runs background importance refresh jobs.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/guestrank/internal/domain/model"
	"github.com/okian/guestrank/pkg/logger"
	"github.com/okian/guestrank/pkg/metrics"
)

const defaultJobTimeout = 30 * time.Second

// Job is what workers read off the queue.
type Job = model.RefreshJob

// Refresher re-analyses the guest named by a job.
type Refresher interface {
	Refresh(ctx context.Context, job Job) error
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context, job Job) error

// Refresh implements Refresher.
func (f RefreshFunc) Refresh(ctx context.Context, job Job) error { return f(ctx, job) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes refresh jobs.
type Worker interface {
	// Run starts the worker loop until ctx is cancelled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	refresher  Refresher
	name       string
	jobTimeout time.Duration

	processed atomic.Int64
	failed    atomic.Int64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from queue.
func NewInMemoryWorker(queue Queue, refresher Refresher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		refresher:  refresher,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop. Stopping the worker cancels the dequeue
// goroutine and the job in progress.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			_ = w.processJob(ctx, job)
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Processed returns the number of jobs handled, successful or not.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns the number of jobs that ended in an error.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

// Shutdown signals the worker to stop and waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processJob(ctx context.Context, job Job) (err error) { //nolint:gocritic // hugeParam: jobs travel by value
	log := w.logger.With(logger.String("job_id", job.ID), logger.String("guest_id", job.GuestID))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh %s panicked: %v", job.GuestID, r)
		}
		w.processed.Add(1)
		outcome := "success"
		if err != nil {
			w.failed.Add(1)
			outcome = "failure"
			log.Warn(ctx, "refresh job failed", logger.Error(err))
		}
		metrics.RecordWorkerJob(outcome)
	}()

	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	if err := w.refresher.Refresh(ctx, job); err != nil {
		return fmt.Errorf("refresh %s: %w", job.GuestID, err)
	}
	log.Debug(ctx, "refresh job done")
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. Options apply to every worker.
func NewPool(workerCount int, queue Queue, refresher Refresher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Nop(),
	}
	for i := range workerCount {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(queue, refresher, wopts...)
	}
	if len(p.workers) > 0 {
		p.logger = p.workers[0].logger
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the total number of jobs handled by the pool.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed returns the total number of failed jobs.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Shutdown closes the queue and lets workers drain it. If ctx ends first the
// remaining workers are stopped and the queued jobs are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "pool drain timed out", logger.Int("worker_id", i))
			for _, rest := range p.workers {
				rest.stopOnce.Do(func() { close(rest.shutdown) })
			}
			return fmt.Errorf("pool shutdown: %w", ctx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}

package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrQueueClosed is returned by Add after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one unit of admitted work.
type Job func(ctx context.Context) error

// ProcessQueue runs at most limit jobs at once. Waiters start in arrival
// order; completion order is whatever the jobs make it.
type ProcessQueue struct {
	name   string
	limit  int
	sem    *semaphore.Weighted
	logger *slog.Logger

	running atomic.Int64
	waiting atomic.Int64
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessQueue)

// WithName labels the queue in logs.
func WithName(name string) Option {
	return func(q *ProcessQueue) {
		if name != "" {
			q.name = name
		}
	}
}

func NewProcessQueue(limit int, logger *slog.Logger, opts ...Option) *ProcessQueue {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessQueue{
		name:   "default",
		limit:  limit,
		sem:    semaphore.NewWeighted(int64(limit)),
		logger: logger,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Add blocks until job has run and returns its error. A caller whose ctx ends
// while still waiting leaves the line without running job.
func (q *ProcessQueue) Add(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot add: queue is shutting down", "queue", q.name)
		return ErrQueueClosed
	}
	q.wg.Add(1)
	q.mu.Unlock()
	defer q.wg.Done()

	q.waiting.Add(1)
	err := q.sem.Acquire(ctx, 1)
	q.waiting.Add(-1)
	if err != nil {
		q.logger.Debug("left queue before admission", "queue", q.name, "error", err)
		return err
	}
	defer q.sem.Release(1)

	q.running.Add(1)
	defer q.running.Add(-1)
	return job(ctx)
}

// Running is the number of admitted jobs.
func (q *ProcessQueue) Running() int { return int(q.running.Load()) }

// Waiting is the number of callers blocked on admission.
func (q *ProcessQueue) Waiting() int { return int(q.waiting.Load()) }

// Limit is the concurrency bound K.
func (q *ProcessQueue) Limit() int { return q.limit }

// Name is the log label.
func (q *ProcessQueue) Name() string { return q.name }

// Shutdown refuses new jobs and waits for queued and running ones, or for ctx.
func (q *ProcessQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context", "queue", q.name)
	case <-done:
		q.logger.Info("queue drained, shutdown complete", "queue", q.name)
	}
}

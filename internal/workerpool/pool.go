package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/text-extractor/internal/common"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// State is a worker's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateBusy
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Worker is a pool member. Its state is owned by the pool and only changes
// under the pool lock.
type Worker struct {
	ID   string
	pool *Pool

	state State
	exec  Executor
	jobs  int
}

// State returns the worker's current state.
func (w *Worker) State() State {
	w.pool.mu.Lock()
	defer w.pool.mu.Unlock()
	return w.state
}

// Jobs is the number of requests the worker completed.
func (w *Worker) Jobs() int {
	w.pool.mu.Lock()
	defer w.pool.mu.Unlock()
	return w.jobs
}

// Pool is a growable set of reusable workers for one document class. It has
// no upper bound; callers throttle through a ProcessQueue.
type Pool struct {
	name    string
	spawner Spawner
	logger  *slog.Logger

	mu      sync.Mutex
	workers []*Worker
	closed  bool
}

func NewPool(name string, spawner Spawner, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{name: name, spawner: spawner, logger: logger}
}

// Available reports whether this pool can run anything at all.
func (p *Pool) Available() bool {
	return p.spawner.Available()
}

// Acquire claims an idle worker, or registers and spawns a new one. The
// returned worker is Busy and belongs to the caller until Run or Release.
func (p *Pool) Acquire(ctx context.Context) (*Worker, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	for _, w := range p.workers {
		if w.state == StateIdle {
			w.state = StateBusy
			p.mu.Unlock()
			return w, nil
		}
	}
	w := &Worker{ID: uuid.NewString(), pool: p, state: StateBusy}
	p.workers = append(p.workers, w)
	p.mu.Unlock()

	exec, err := p.spawner.Spawn(ctx)
	if err != nil {
		p.destroy(w, "spawn failed")
		p.logger.Error("failed to spawn worker", "pool", p.name, "error", err)
		return nil, fmt.Errorf("spawn worker: %w", err)
	}

	p.mu.Lock()
	if w.state == StateDestroyed {
		p.mu.Unlock()
		_ = exec.Terminate()
		return nil, ErrPoolClosed
	}
	w.exec = exec
	size := len(p.workers)
	p.mu.Unlock()

	p.logger.Info("worker spawned", "pool", p.name, "worker_id", w.ID, "pool_size", size)
	return w, nil
}

// Run sends req to the claimed worker and waits for the first of the
// response or the deadline. A worker that answers in time goes back to Idle,
// even when the answer is an extraction error. A worker that misses the
// deadline, breaks its transport, or is abandoned by ctx is destroyed.
func (p *Pool) Run(ctx context.Context, w *Worker, req Request, timeout time.Duration) (Response, error) {
	p.mu.Lock()
	if w.pool != p || w.state != StateBusy || w.exec == nil {
		p.mu.Unlock()
		return Response{}, fmt.Errorf("worker %s is not claimed", w.ID)
	}
	exec := w.exec
	p.mu.Unlock()

	dctx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		dctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := exec.Execute(dctx, req)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			p.destroy(w, "transport error")
			if ctx.Err() == nil && errors.Is(dctx.Err(), context.DeadlineExceeded) {
				return Response{}, fmt.Errorf("worker %s after %s: %w", w.ID, timeout, common.ErrExtractionTimeout)
			}
			p.logger.Warn("worker transport failed", "pool", p.name, "worker_id", w.ID, "name", req.Name, "error", r.err)
			return Response{}, fmt.Errorf("worker %s: %w", w.ID, r.err)
		}
		p.release(w, true)
		if r.resp.Error != "" {
			return r.resp, fmt.Errorf("%w: %s", common.ErrExtractionFailure, r.resp.Error)
		}
		return r.resp, nil
	case <-dctx.Done():
		if ctx.Err() != nil {
			p.destroy(w, "caller cancelled")
			return Response{}, ctx.Err()
		}
		p.destroy(w, "deadline exceeded")
		p.logger.Warn("worker timed out", "pool", p.name, "worker_id", w.ID, "name", req.Name, "timeout", timeout)
		return Response{}, fmt.Errorf("worker %s after %s: %w", w.ID, timeout, common.ErrExtractionTimeout)
	}
}

// Release hands a claimed worker back without running anything.
func (p *Pool) Release(w *Worker) {
	p.release(w, false)
}

func (p *Pool) release(w *Worker, completed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w.state != StateBusy {
		return
	}
	w.state = StateIdle
	if completed {
		w.jobs++
	}
}

// destroy removes w from the pool and terminates its executor. Safe to call
// more than once.
func (p *Pool) destroy(w *Worker, reason string) {
	p.mu.Lock()
	if w.state == StateDestroyed {
		p.mu.Unlock()
		return
	}
	w.state = StateDestroyed
	for i, m := range p.workers {
		if m == w {
			p.workers = append(p.workers[:i], p.workers[i+1:]...)
			break
		}
	}
	exec := w.exec
	p.mu.Unlock()

	p.logger.Info("worker destroyed", "pool", p.name, "worker_id", w.ID, "reason", reason)
	if exec != nil {
		if err := exec.Terminate(); err != nil {
			p.logger.Warn("worker terminate failed", "pool", p.name, "worker_id", w.ID, "error", err)
		}
	}
}

// Size is the number of live workers.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Idle is the number of workers ready for a job.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, w := range p.workers {
		if w.state == StateIdle {
			n++
		}
	}
	return n
}

// Close terminates every worker. In-flight Runs fail with a transport error.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	workers := append([]*Worker(nil), p.workers...)
	p.mu.Unlock()

	for _, w := range workers {
		p.destroy(w, "pool closed")
	}
	return nil
}

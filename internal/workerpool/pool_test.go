package workerpool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/text-extractor/internal/common"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExecutor answers with fn; Terminate unblocks any call stuck in fn.
type fakeExecutor struct {
	fn         func(ctx context.Context, req Request) (Response, error)
	terminated chan struct{}
	once       sync.Once
}

func (f *fakeExecutor) Execute(ctx context.Context, req Request) (Response, error) {
	return f.fn(ctx, req)
}

func (f *fakeExecutor) Terminate() error {
	f.once.Do(func() { close(f.terminated) })
	return nil
}

type fakeSpawner struct {
	fn        func(ctx context.Context, req Request) (Response, error)
	spawned   atomic.Int32
	execs     []*fakeExecutor
	mu        sync.Mutex
	spawnErr  error
	available bool
}

func newFakeSpawner(fn func(ctx context.Context, req Request) (Response, error)) *fakeSpawner {
	return &fakeSpawner{fn: fn, available: true}
}

func (s *fakeSpawner) Spawn(context.Context) (Executor, error) {
	if s.spawnErr != nil {
		return nil, s.spawnErr
	}
	s.spawned.Add(1)
	e := &fakeExecutor{terminated: make(chan struct{})}
	e.fn = func(ctx context.Context, req Request) (Response, error) {
		return s.fn(ctx, req)
	}
	s.mu.Lock()
	s.execs = append(s.execs, e)
	s.mu.Unlock()
	return e, nil
}

func (s *fakeSpawner) Available() bool { return s.available }

func echo(_ context.Context, req Request) (Response, error) {
	return Response{ID: req.ID, Text: string(req.Data)}, nil
}

func TestPool_ReusesIdleWorker(t *testing.T) {
	ctx := context.Background()
	pool := NewPool("pdf", newFakeSpawner(echo), discardLogger())
	defer pool.Close()

	w1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	resp, err := pool.Run(ctx, w1, Request{ID: "1", Data: []byte("a")}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "a", resp.Text)
	assert.Equal(t, StateIdle, w1.State())

	w2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, w1, w2)
	_, err = pool.Run(ctx, w2, Request{ID: "2", Data: []byte("b")}, time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, pool.Size())
	assert.Equal(t, 2, w1.Jobs())
}

func TestPool_TimeoutDestroysWorker(t *testing.T) {
	ctx := context.Background()
	var spawner *fakeSpawner
	spawner = newFakeSpawner(func(ctx context.Context, req Request) (Response, error) {
		if string(req.Data) == "hang" {
			// ignores ctx like a wedged parser; only termination frees it
			spawner.mu.Lock()
			e := spawner.execs[len(spawner.execs)-1]
			spawner.mu.Unlock()
			<-e.terminated
			return Response{}, errors.New("terminated")
		}
		return echo(ctx, req)
	})
	pool := NewPool("pdf", spawner, discardLogger())
	defer pool.Close()

	w1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	start := time.Now()
	_, err = pool.Run(ctx, w1, Request{ID: "1", Data: []byte("hang")}, 50*time.Millisecond)
	require.ErrorIs(t, err, common.ErrExtractionTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, StateDestroyed, w1.State())
	assert.Equal(t, 0, pool.Size())
	select {
	case <-spawner.execs[0].terminated:
	default:
		t.Fatal("timed out worker was not terminated")
	}

	w2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.NotSame(t, w1, w2)
	assert.NotEqual(t, w1.ID, w2.ID)
	assert.Equal(t, int32(2), spawner.spawned.Load())

	// a destroyed worker cannot be run again
	_, err = pool.Run(ctx, w1, Request{ID: "x"}, time.Second)
	require.Error(t, err)
}

func TestPool_ApplicationErrorKeepsWorker(t *testing.T) {
	ctx := context.Background()
	pool := NewPool("image", newFakeSpawner(func(_ context.Context, req Request) (Response, error) {
		return Response{ID: req.ID, Error: "not an image"}, nil
	}), discardLogger())
	defer pool.Close()

	w, err := pool.Acquire(ctx)
	require.NoError(t, err)
	_, err = pool.Run(ctx, w, Request{ID: "1"}, time.Second)
	require.ErrorIs(t, err, common.ErrExtractionFailure)
	assert.Contains(t, err.Error(), "not an image")
	assert.Equal(t, StateIdle, w.State())
	assert.Equal(t, 1, pool.Idle())
}

func TestPool_TransportErrorDestroysWorker(t *testing.T) {
	ctx := context.Background()
	pool := NewPool("pdf", newFakeSpawner(func(context.Context, Request) (Response, error) {
		return Response{}, io.ErrUnexpectedEOF
	}), discardLogger())
	defer pool.Close()

	w, err := pool.Acquire(ctx)
	require.NoError(t, err)
	_, err = pool.Run(ctx, w, Request{ID: "1"}, time.Second)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.False(t, errors.Is(err, common.ErrExtractionTimeout))
	assert.Equal(t, 0, pool.Size())
}

func TestPool_CallerCancelDestroysWorker(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	pool := NewPool("pdf", newFakeSpawner(func(context.Context, Request) (Response, error) {
		<-block
		return Response{}, nil
	}), discardLogger())
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	w, err := pool.Acquire(ctx)
	require.NoError(t, err)
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = pool.Run(ctx, w, Request{ID: "1"}, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, pool.Size())
}

func TestPool_ConcurrentAcquireNeverSharesWorker(t *testing.T) {
	ctx := context.Background()
	pool := NewPool("pdf", newFakeSpawner(echo), discardLogger())
	defer pool.Close()

	// seed a few idle workers
	var seed []*Worker
	for i := 0; i < 3; i++ {
		w, err := pool.Acquire(ctx)
		require.NoError(t, err)
		seed = append(seed, w)
	}
	for _, w := range seed {
		pool.Release(w)
	}

	const n = 16
	got := make([]*Worker, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := pool.Acquire(ctx)
			assert.NoError(t, err)
			got[i] = w
		}(i)
	}
	wg.Wait()

	seen := map[*Worker]bool{}
	for _, w := range got {
		require.NotNil(t, w)
		assert.False(t, seen[w], "worker %s claimed twice", w.ID)
		seen[w] = true
		assert.Equal(t, StateBusy, w.State())
	}
	assert.Equal(t, n, pool.Size())
	assert.Equal(t, 0, pool.Idle())
}

func TestPool_SpawnFailure(t *testing.T) {
	spawner := newFakeSpawner(echo)
	spawner.spawnErr = errors.New("fork failed")
	pool := NewPool("pdf", spawner, discardLogger())

	_, err := pool.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, pool.Size())
}

func TestPool_Close(t *testing.T) {
	ctx := context.Background()
	spawner := newFakeSpawner(echo)
	pool := NewPool("pdf", spawner, discardLogger())

	w, err := pool.Acquire(ctx)
	require.NoError(t, err)
	pool.Release(w)
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())

	assert.Equal(t, 0, pool.Size())
	<-spawner.execs[0].terminated
	_, err = pool.Acquire(ctx)
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "busy", StateBusy.String())
	assert.Equal(t, "destroyed", StateDestroyed.String())
}

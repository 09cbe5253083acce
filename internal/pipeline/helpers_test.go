package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/text-extractor/internal/cache"
	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/entity"
	"github.com/joseph-ayodele/text-extractor/internal/workerpool"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mapReader map[string][]byte

func (m mapReader) ReadBytes(_ context.Context, path string) ([]byte, error) {
	b, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, common.ErrNotFound)
	}
	return b, nil
}

type executeFunc func(ctx context.Context, req workerpool.Request) (workerpool.Response, error)

type fakeExecutor struct {
	fn       executeFunc
	executed *atomic.Int32
}

func (e *fakeExecutor) Execute(ctx context.Context, req workerpool.Request) (workerpool.Response, error) {
	e.executed.Add(1)
	return e.fn(ctx, req)
}

func (e *fakeExecutor) Terminate() error { return nil }

type fakeSpawner struct {
	fn          executeFunc
	unavailable bool
	spawned     atomic.Int32
	executed    atomic.Int32
}

func (s *fakeSpawner) Spawn(context.Context) (workerpool.Executor, error) {
	s.spawned.Add(1)
	return &fakeExecutor{fn: s.fn, executed: &s.executed}, nil
}

func (s *fakeSpawner) Available() bool { return !s.unavailable }

// echoPages answers a PDF with its bytes as one page and an image with its
// bytes as text.
func echoPages(_ context.Context, req workerpool.Request) (workerpool.Response, error) {
	if req.Kind == "PDF" {
		return workerpool.Response{ID: req.ID, Pages: []string{string(req.Data)}}, nil
	}
	return workerpool.Response{ID: req.ID, Text: string(req.Data)}, nil
}

type recordedJobs struct {
	mu   sync.Mutex
	jobs []entity.ExtractJob
}

func (r *recordedJobs) Record(_ context.Context, job entity.ExtractJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordedJobs) snapshot() []entity.ExtractJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.ExtractJob(nil), r.jobs...)
}

type failingBackend struct{ *cache.MemoryBackend }

func (failingBackend) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

type fixture struct {
	svc     *Service
	backend *cache.MemoryBackend
	spawner *fakeSpawner
	jobs    *recordedJobs
}

func newFixture(t *testing.T, cfg Config, reader Reader, fn executeFunc) *fixture {
	t.Helper()
	backend := cache.NewMemoryBackend()
	return newFixtureWithBackend(t, cfg, reader, fn, backend, backend)
}

func newFixtureWithBackend(t *testing.T, cfg Config, reader Reader, fn executeFunc, b cache.Backend, mem *cache.MemoryBackend) *fixture {
	t.Helper()
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	f := &fixture{
		backend: mem,
		spawner: &fakeSpawner{fn: fn},
		jobs:    &recordedJobs{},
	}
	svc, err := NewService(cfg, Deps{
		Store:   cache.NewStore(b, discardLogger()),
		Reader:  reader,
		Spawner: f.spawner,
		Jobs:    f.jobs,
		Logger:  discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	f.svc = svc
	return f
}

func (f *fixture) entry(t *testing.T, path string) cache.Entry {
	t.Helper()
	data, err := f.backend.Get(context.Background(), cache.ComputeKey(path))
	require.NoError(t, err)
	var e cache.Entry
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

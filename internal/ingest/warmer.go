package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
)

// Warmer pushes many paths through an Extractor so that later reads hit the
// cache. Per-file failures are reported, never returned.
type Warmer struct {
	ext      Extractor
	parallel int
	opts     pipeline.Options
	logger   *slog.Logger

	// OnResult, if set, is called once per finished file. Calls may be
	// concurrent.
	OnResult func(FileResult)
}

// NewWarmer builds a warmer that keeps at most parallel calls in flight. The
// extractor's own queue still bounds actual worker use.
func NewWarmer(ext Extractor, parallel int, opts pipeline.Options, logger *slog.Logger) *Warmer {
	if parallel < 1 {
		parallel = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{ext: ext, parallel: parallel, opts: opts, logger: logger}
}

// Run extracts every path and returns results in input order.
func (w *Warmer) Run(ctx context.Context, paths []string) ([]FileResult, DirStats, error) {
	results := make([]FileResult, len(paths))
	var (
		mu    sync.Mutex
		stats DirStats
	)
	stats.Matched = uint32(len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallel)
	for i, p := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := w.one(gctx, p)
			results[i] = res
			mu.Lock()
			count(&stats, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, stats, err
	}
	return results, stats, ctx.Err()
}

// Watch extracts each path received on events until the channel closes or
// ctx ends, then waits for in-flight work.
func (w *Warmer) Watch(ctx context.Context, events <-chan string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallel)
	for {
		select {
		case <-gctx.Done():
			_ = g.Wait()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case p, ok := <-events:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				w.one(gctx, p)
				return nil
			})
		}
	}
}

func (w *Warmer) one(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}
	out, err := w.ext.Extract(ctx, path, w.opts)
	switch {
	case errors.Is(err, common.ErrUnsupportedFileType):
		res.Status = StatusUnsupported
		res.Err = err.Error()
	case err != nil:
		res.Status = StatusFailed
		res.Err = err.Error()
	case out.Kind == pipeline.KindOK && out.Cached:
		res.Status = StatusCached
		res.Chars = len(out.Text)
	case out.Kind == pipeline.KindOK:
		res.Status = StatusOK
		res.Chars = len(out.Text)
	case out.Kind == pipeline.KindUnavailable:
		res.Status = StatusUnavailable
		res.Err = out.Reason()
	default:
		res.Status = StatusFailed
		res.Err = out.Reason()
	}

	if res.Status == StatusFailed {
		w.logger.Warn("warm failed", "path", path, "error", res.Err)
	} else {
		w.logger.Debug("warmed", "path", path, "status", res.Status, "chars", res.Chars)
	}
	if w.OnResult != nil {
		w.OnResult(res)
	}
	return res
}

func count(s *DirStats, r FileResult) {
	switch r.Status {
	case StatusOK:
		s.Succeeded++
	case StatusCached:
		s.Cached++
	case StatusUnavailable:
		s.Unavailable++
	default:
		s.Failed++
	}
}

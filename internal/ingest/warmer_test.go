package ingest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubExtractor struct {
	mu       sync.Mutex
	outcomes map[string]pipeline.Outcome
	seen     []string
	active   atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (s *stubExtractor) Extract(_ context.Context, path string, _ pipeline.Options) (pipeline.Outcome, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, path)
	if !pipeline.CanExtract(path) {
		return pipeline.Outcome{}, common.NewAppError(common.CodeUnsupportedType, "nope", common.ErrUnsupportedFileType)
	}
	if out, ok := s.outcomes[path]; ok {
		return out, nil
	}
	return pipeline.Outcome{Kind: pipeline.KindOK, Text: "text"}, nil
}

func TestWarmer_Run(t *testing.T) {
	ext := &stubExtractor{
		delay: 5 * time.Millisecond,
		outcomes: map[string]pipeline.Outcome{
			"cached.pdf": {Kind: pipeline.KindOK, Text: "hi", Cached: true},
			"bad.pdf":    {Kind: pipeline.KindFailed, Err: common.ErrExtractionFailure},
			"far.png":    {Kind: pipeline.KindUnavailable, Err: common.ErrPlatformUnsupported},
		},
	}
	var reported atomic.Int32
	w := NewWarmer(ext, 2, pipeline.Options{}, discardLogger())
	w.OnResult = func(FileResult) { reported.Add(1) }

	paths := []string{"ok.pdf", "cached.pdf", "bad.pdf", "far.png", "x.txt"}
	results, stats, err := w.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))

	assert.Equal(t, FileResult{Path: "ok.pdf", Status: StatusOK, Chars: 4}, results[0])
	assert.Equal(t, FileResult{Path: "cached.pdf", Status: StatusCached, Chars: 2}, results[1])
	assert.Equal(t, StatusFailed, results[2].Status)
	assert.NotEmpty(t, results[2].Err)
	assert.Equal(t, StatusUnavailable, results[3].Status)
	assert.Equal(t, StatusUnsupported, results[4].Status)

	assert.EqualValues(t, 5, stats.Matched)
	assert.EqualValues(t, 1, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Cached)
	assert.EqualValues(t, 1, stats.Unavailable)
	assert.EqualValues(t, 2, stats.Failed)
	assert.EqualValues(t, 5, reported.Load())
	assert.LessOrEqual(t, ext.peak.Load(), int32(2))
}

func TestWarmer_Watch(t *testing.T) {
	ext := &stubExtractor{}
	w := NewWarmer(ext, 1, pipeline.Options{}, discardLogger())

	events := make(chan string, 3)
	events <- "a.pdf"
	events <- "b.png"
	close(events)

	require.NoError(t, w.Watch(context.Background(), events))
	assert.ElementsMatch(t, []string{"a.pdf", "b.png"}, ext.seen)
}

func TestWarmer_WatchStopsOnCancel(t *testing.T) {
	w := NewWarmer(&stubExtractor{}, 1, pipeline.Options{}, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, make(chan string)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "event channel closed")
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestStartWatcher_InitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "old.pdf", ".cache/skip.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Root:        root,
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    100 * time.Millisecond,
	}, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "old.pdf", receive(t, events))

	writeFiles(t, root, "notes.txt", "new.png")
	assert.Equal(t, "new.png", receive(t, events))

	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	time.Sleep(50 * time.Millisecond)
	writeFiles(t, root, "sub/inner.jpg")
	assert.Equal(t, "sub/inner.jpg", receive(t, events))

	cancel()
	for range events {
	}
}

func TestStartWatcher_RequiresRoot(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, discardLogger())
	require.Error(t, err)
}

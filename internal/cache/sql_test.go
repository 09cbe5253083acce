package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/repository"
)

func TestSQLBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, common.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "cache.db"),
	}, discardLogger())
	require.NoError(t, err)
	defer db.Close(discardLogger())

	store, err := Open(ctx, common.CacheConfig{Driver: "sql"}, db, discardLogger())
	require.NoError(t, err)

	_, ok := store.Read(ctx, "a.pdf")
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, Entry{SourcePath: "a.pdf", Text: "one"}))
	require.NoError(t, store.Put(ctx, Entry{SourcePath: "a.pdf", Text: "two"}))
	require.NoError(t, store.Put(ctx, Entry{SourcePath: "b.jpg", Text: "img", Languages: []string{"fra"}}))

	e, ok := store.Read(ctx, "a.pdf")
	require.True(t, ok)
	assert.Equal(t, "two", e.Text)

	count := 0
	require.NoError(t, store.List(ctx, func(string, Entry) error {
		count++
		return nil
	}))
	assert.Equal(t, 2, count)

	// reopening keeps the table and its rows
	b, err := NewSQLBackend(ctx, db)
	require.NoError(t, err)
	raw, err := b.Get(ctx, ComputeKey("b.jpg"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"img"`)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, common.CacheConfig{Driver: "memory"}, nil, discardLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(ctx, common.CacheConfig{Driver: "fs", Dir: t.TempDir()}, nil, discardLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = Open(ctx, common.CacheConfig{Driver: "sql"}, nil, discardLogger())
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = Open(ctx, common.CacheConfig{Driver: "etcd"}, nil, discardLogger())
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

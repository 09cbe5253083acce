package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const recordExt = ".json"

// FSBackend stores one <key>.json file per document under a directory.
type FSBackend struct {
	dir string
}

func NewFSBackend(dir string) (*FSBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &FSBackend{dir: dir}, nil
}

func (b *FSBackend) path(key string) string {
	return filepath.Join(b.dir, key+recordExt)
}

func (b *FSBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put writes to a temp file in the same directory and renames it over the
// record, so readers see the old or the new file and nothing in between.
func (b *FSBackend) Put(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(b.dir, "."+key+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, b.path(key))
}

func (b *FSBackend) List(ctx context.Context, fn func(key string, data []byte) error) error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return err
	}
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		key := strings.TrimSuffix(name, recordExt)
		data, err := b.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(key, data); err != nil {
			return err
		}
	}
	return nil
}

func (b *FSBackend) Close() error { return nil }

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/text-extractor/internal/common"
)

// FSReader reads documents from the vault directory on the local filesystem.
type FSReader struct {
	Root string
}

func NewFSReader(root string) *FSReader {
	return &FSReader{Root: root}
}

// Resolve maps a vault path to a filesystem path. Relative paths may not
// climb out of the vault; absolute paths are taken as given.
func (r *FSReader) Resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	local := filepath.FromSlash(path)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("path %q escapes the vault: %w", path, common.ErrInvalidInput)
	}
	return filepath.Join(r.Root, local), nil
}

// ReadBytes returns the whole document.
func (r *FSReader) ReadBytes(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

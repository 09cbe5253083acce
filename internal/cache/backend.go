package cache

import (
	"context"

	"github.com/joseph-ayodele/text-extractor/internal/common"
)

// ErrNotFound is returned by a Backend when no record exists under a key.
var ErrNotFound = common.ErrNotFound

// Backend is the key-value byte store behind the cache. Put must be
// all-or-nothing visible to concurrent readers.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// List calls fn for every stored record until fn returns an error.
	List(ctx context.Context, fn func(key string, data []byte) error) error
	Close() error
}

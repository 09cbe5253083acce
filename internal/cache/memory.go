package cache

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *MemoryBackend) Put(_ context.Context, key string, data []byte) error {
	cp := append([]byte(nil), data...)
	b.mu.Lock()
	b.data[key] = cp
	b.mu.Unlock()
	return nil
}

// List iterates in key order over a snapshot taken under the lock.
func (b *MemoryBackend) List(_ context.Context, fn func(key string, data []byte) error) error {
	b.mu.RLock()
	keys := make([]string, 0, len(b.data))
	snap := make(map[string][]byte, len(b.data))
	for k, v := range b.data {
		keys = append(keys, k)
		snap[k] = v
	}
	b.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k, append([]byte(nil), snap[k]...)); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of stored records.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

func (b *MemoryBackend) Close() error { return nil }

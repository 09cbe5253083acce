package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Store reads and writes Entries through a Backend. It never locks per key:
// two concurrent writers for one path both succeed and the last one wins.
type Store struct {
	backend Backend
	log     *slog.Logger
	now     func() time.Time
}

func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, log: logger, now: time.Now}
}

// Read returns the entry for sourcePath. Missing, unreadable and malformed
// records all report a miss.
func (s *Store) Read(ctx context.Context, sourcePath string) (Entry, bool) {
	key := ComputeKey(sourcePath)
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("cache read failed", "path", sourcePath, "key", key, "error", err)
		}
		return Entry{}, false
	}
	if err := validateRecord(data); err != nil {
		s.log.Warn("discarding invalid cache record", "path", sourcePath, "key", key, "error", err)
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.log.Warn("discarding invalid cache record", "path", sourcePath, "key", key, "error", err)
		return Entry{}, false
	}
	return e, true
}

// Write persists e under key, replacing whatever was there. The error is
// logged here; callers may ignore it.
func (s *Store) Write(ctx context.Context, key string, e Entry) error {
	if e.Languages == nil {
		e.Languages = []string{}
	}
	if e.WrittenAt.IsZero() {
		e.WrittenAt = s.now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		s.log.Error("cache encode failed", "path", e.SourcePath, "error", err)
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		s.log.Error("cache write failed", "path", e.SourcePath, "key", key, "error", err)
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	s.log.Debug("cache entry written", "path", e.SourcePath, "key", key, "poisoned", e.Poisoned())
	return nil
}

// Put is Write keyed by the entry's own source path.
func (s *Store) Put(ctx context.Context, e Entry) error {
	return s.Write(ctx, ComputeKey(e.SourcePath), e)
}

// List calls fn for every decodable record. Invalid records are skipped.
func (s *Store) List(ctx context.Context, fn func(key string, e Entry) error) error {
	return s.backend.List(ctx, func(key string, data []byte) error {
		var e Entry
		if err := validateRecord(data); err != nil {
			s.log.Warn("skipping invalid cache record", "key", key, "error", err)
			return nil
		}
		if err := json.Unmarshal(data, &e); err != nil {
			s.log.Warn("skipping invalid cache record", "key", key, "error", err)
			return nil
		}
		return fn(key, e)
	})
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/text-extractor/internal/repository"
)

const cacheTable = "text_cache"

const cacheDDL = `CREATE TABLE IF NOT EXISTS text_cache (
	cache_key  TEXT NOT NULL PRIMARY KEY,
	record     TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`

// SQLBackend stores records in the text_cache table of a sqlite or Postgres
// database. An upsert replaces one row atomically.
type SQLBackend struct {
	db *repository.DB
}

// NewSQLBackend creates the table if needed.
func NewSQLBackend(ctx context.Context, db *repository.DB) (*SQLBackend, error) {
	b := &SQLBackend{db: db}
	if _, err := db.ExecContext(ctx, cacheDDL); err != nil {
		return nil, fmt.Errorf("create %s: %w", cacheTable, err)
	}
	return b, nil
}

func (b *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	d := entsql.Dialect(b.db.Dialect)
	query, args := d.Select("record").
		From(d.Table(cacheTable)).
		Where(entsql.EQ("cache_key", key)).
		Query()
	var record string
	err := b.db.QueryRowContext(ctx, query, args...).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(record), nil
}

func (b *SQLBackend) Put(ctx context.Context, key string, data []byte) error {
	query, args := entsql.Dialect(b.db.Dialect).
		Insert(cacheTable).
		Columns("cache_key", "record", "updated_at").
		Values(key, string(data), time.Now().UnixNano()).
		OnConflict(entsql.ConflictColumns("cache_key"), entsql.ResolveWithNewValues()).
		Query()
	_, err := b.db.ExecContext(ctx, query, args...)
	return err
}

func (b *SQLBackend) List(ctx context.Context, fn func(key string, data []byte) error) error {
	d := entsql.Dialect(b.db.Dialect)
	query, args := d.Select("cache_key", "record").
		From(d.Table(cacheTable)).
		OrderBy("cache_key").
		Query()
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	// drain first: sqlite runs on a single connection and fn may query again
	type row struct{ key, record string }
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.record); err != nil {
			_ = rows.Close()
			return err
		}
		all = append(all, r)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range all {
		if err := fn(r.key, []byte(r.record)); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the database belongs to the caller.
func (b *SQLBackend) Close() error { return nil }

package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLayer is the optional L3 disk-backed KV layer (spec.md §4.3: TTL
// up to 24h, size-bound with LRU eviction), grounded on
// graph/store/sqlite.go's connection setup (WAL mode, busy_timeout,
// single-writer pool) and table-creation idiom.
type SQLiteLayer struct {
	db      *sql.DB
	maxRows int
}

// SQLiteOptions bounds L3 by row count only: MaxRows caps the number of
// entries (config.Init derives it as 100,000 rows per GB of max_gb). There
// is no byte-size bound and no VACUUM, so the database file does not
// shrink after eviction.
type SQLiteOptions struct {
	Path    string
	MaxRows int
}

// NewSQLiteLayer opens (creating if needed) a SQLite-backed L3 layer.
func NewSQLiteLayer(opts SQLiteOptions) (*SQLiteLayer, error) {
	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite cache: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			inserted_at TIMESTAMP NOT NULL,
			ttl_seconds INTEGER NOT NULL,
			hits INTEGER NOT NULL DEFAULT 0,
			last_access TIMESTAMP NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = 100000
	}
	return &SQLiteLayer{db: db, maxRows: maxRows}, nil
}

func (s *SQLiteLayer) Name() string { return "l3" }

func (s *SQLiteLayer) Get(ctx context.Context, key string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, inserted_at, ttl_seconds, hits FROM cache_entries WHERE key = ?`, key)

	var value []byte
	var insertedAt time.Time
	var ttlSeconds int64
	var hits int64
	if err := row.Scan(&value, &insertedAt, &ttlSeconds, &hits); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}

	entry := Entry{Value: value, InsertedAt: insertedAt, TTL: time.Duration(ttlSeconds) * time.Second, Hits: hits}
	if entry.Expired(time.Now()) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		return Entry{}, false, nil
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE cache_entries SET hits = hits + 1, last_access = ? WHERE key = ?`, time.Now(), key)
	return entry, true, nil
}

func (s *SQLiteLayer) Set(ctx context.Context, key string, entry Entry) error {
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}
	if entry.TTL <= 0 {
		entry.TTL = 24 * time.Hour
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, inserted_at, ttl_seconds, hits, last_access)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			inserted_at = excluded.inserted_at,
			ttl_seconds = excluded.ttl_seconds,
			last_access = excluded.last_access
	`, key, entry.Value, entry.InsertedAt, int64(entry.TTL/time.Second), entry.Hits, time.Now())
	if err != nil {
		return err
	}
	return s.evictIfOverCapacity(ctx)
}

// evictIfOverCapacity drops the least-recently-accessed rows once the table
// exceeds maxRows (§4.3's "size-bound with LRU eviction").
func (s *SQLiteLayer) evictIfOverCapacity(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return err
	}
	if count <= s.maxRows {
		return nil
	}
	excess := count - s.maxRows
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM cache_entries WHERE key IN (
			SELECT key FROM cache_entries ORDER BY last_access ASC LIMIT ?
		)
	`, excess)
	return err
}

func (s *SQLiteLayer) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (s *SQLiteLayer) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key LIKE ? || '%'`, prefix)
	return err
}

func (s *SQLiteLayer) Flush(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

// Close releases the underlying connection pool.
func (s *SQLiteLayer) Close() error {
	return s.db.Close()
}

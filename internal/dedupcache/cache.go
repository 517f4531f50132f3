package dedupcache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// DefaultPathTTL is the default staleness window for path lookups: a
// cached "exists" or "not-exists" answer older than this is reported as
// Unknown rather than trusted.
const DefaultPathTTL = 3600 * time.Second

// busyTimeoutMillis bounds how long a connection waits on SQLite's own
// locking before giving up, letting concurrent upsert/read traffic resolve
// through SQLite rather than an app-level mutex.
const busyTimeoutMillis = 30000

// Cache is the dedup cache's database handle. It is safe for concurrent
// use by multiple goroutines.
type Cache struct {
	db      *sql.DB
	logger  *slog.Logger
	pathTTL time.Duration
	nowFunc func() time.Time // injectable for deterministic tests
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithPathTTL overrides DefaultPathTTL.
func WithPathTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.pathTTL = ttl }
}

// withNowFunc overrides the cache's clock; used by tests to exercise TTL
// expiry deterministically.
func withNowFunc(f func() time.Time) Option {
	return func(c *Cache) { c.nowFunc = f }
}

// Open opens (creating if necessary) the SQLite database at dbPath and
// applies all pending migrations. The database runs in WAL mode with a
// bounded busy timeout so concurrent readers and writers resolve contention
// through SQLite's own locking.
func Open(ctx context.Context, dbPath string, logger *slog.Logger, opts ...Option) (*Cache, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)",
		dbPath, busyTimeoutMillis,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("dedupcache: opening database %s: %w", dbPath, err)
	}

	// A small bounded pool lets SQLite's locking (not an app mutex)
	// arbitrate concurrent upserts, while still capping connection count.
	db.SetMaxOpenConns(4)

	if migrateErr := runMigrations(ctx, db, logger); migrateErr != nil {
		db.Close()
		return nil, migrateErr
	}

	c := &Cache{
		db:      db,
		logger:  logger,
		pathTTL: DefaultPathTTL,
		nowFunc: time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	logger.Info("dedup cache opened", slog.String("db_path", dbPath))

	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

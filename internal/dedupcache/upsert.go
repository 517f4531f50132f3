package dedupcache

import (
	"context"
	"fmt"
)

const sqlUpsertRow = `INSERT INTO s3_files
	(bucket, s3_path, file_exists, filename, file_size, cached_at, last_verified)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(bucket, s3_path) DO UPDATE SET
	 file_exists = excluded.file_exists,
	 filename = excluded.filename,
	 file_size = excluded.file_size,
	 last_verified = MAX(s3_files.last_verified, excluded.last_verified)`

// Upsert writes a single cache row, refreshing last_verified and leaving
// cached_at untouched on an existing row (cached_at is "first seen").
func (c *Cache) Upsert(ctx context.Context, bucket string, e UpsertEntry) error {
	return c.UpsertAll(ctx, bucket, []UpsertEntry{e})
}

// UpsertAll applies a batch of (key, exists, filename, size) entries in a
// single transaction. Concurrent upserts of the same (bucket, key) leave
// exactly one row whose last_verified is the later of the two, since SQLite
// serializes the conflicting writes and the conflict clause keeps the
// greater of the stored and incoming last_verified.
func (c *Cache) UpsertAll(ctx context.Context, bucket string, entries []UpsertEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dedupcache: beginning upsert transaction: %w", err)
	}
	defer tx.Rollback()

	now := c.nowFunc().Unix()

	stmt, err := tx.PrepareContext(ctx, sqlUpsertRow)
	if err != nil {
		return fmt.Errorf("dedupcache: preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, execErr := stmt.ExecContext(ctx, bucket, e.Key, e.Exists, e.Filename, e.Size, now, now); execErr != nil {
			return fmt.Errorf("dedupcache: upserting %s/%s: %w", bucket, e.Key, execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("dedupcache: committing upsert transaction: %w", commitErr)
	}

	return nil
}

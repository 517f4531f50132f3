package dedupcache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const sqlMarkExists = `INSERT INTO s3_files
	(bucket, s3_path, file_exists, filename, file_size, cached_at, last_verified)
	VALUES (?, ?, 1, ?, ?, ?, ?)
	ON CONFLICT(bucket, s3_path) DO UPDATE SET
	 file_exists = 1,
	 filename = excluded.filename,
	 file_size = excluded.file_size,
	 last_verified = excluded.last_verified`

const sqlUpsertBucketMetadata = `INSERT INTO cache_metadata
	(bucket, last_full_sync, last_sync_files_in_s3, last_sync_files_removed)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(bucket) DO UPDATE SET
	 last_full_sync = excluded.last_full_sync,
	 last_sync_files_in_s3 = excluded.last_sync_files_in_s3,
	 last_sync_files_removed = excluded.last_sync_files_removed`

// ReconcileResult summarizes one Reconcile pass.
type ReconcileResult struct {
	FilesInStore int
	FilesRemoved int
}

// StoreObject is the subset of object-store listing metadata Reconcile
// needs: key, filename, and size.
type StoreObject struct {
	Key      string
	Filename string
	Size     int64
}

// Reconcile applies a full object listing under prefix to the cache: every
// listed key is marked file_exists=true (upserting filename/size), and every
// previously-cached row under the same prefix that was NOT in the listing
// is tombstoned (file_exists=false). The operation is
// idempotent — running it twice with the same listing yields the same
// state — and updates the bucket's reconciliation metadata row.
func (c *Cache) Reconcile(ctx context.Context, bucket, prefix string, listing []StoreObject) (ReconcileResult, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("dedupcache: beginning reconcile transaction: %w", err)
	}
	defer tx.Rollback()

	now := c.nowFunc().Unix()

	if err := markListedPresent(ctx, tx, bucket, listing, now); err != nil {
		return ReconcileResult{}, err
	}

	removed, err := tombstoneMissing(ctx, tx, bucket, prefix, listing, now)
	if err != nil {
		return ReconcileResult{}, err
	}

	result := ReconcileResult{
		FilesInStore: len(listing),
		FilesRemoved: removed,
	}

	if err := upsertBucketMetadataTx(ctx, tx, bucket, now, result); err != nil {
		return ReconcileResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return ReconcileResult{}, fmt.Errorf("dedupcache: committing reconcile transaction: %w", err)
	}

	return result, nil
}

func markListedPresent(ctx context.Context, tx *sql.Tx, bucket string, listing []StoreObject, now int64) error {
	stmt, err := tx.PrepareContext(ctx, sqlMarkExists)
	if err != nil {
		return fmt.Errorf("dedupcache: preparing reconcile mark statement: %w", err)
	}
	defer stmt.Close()

	for _, obj := range listing {
		if _, err := stmt.ExecContext(ctx, bucket, obj.Key, obj.Filename, obj.Size, now, now); err != nil {
			return fmt.Errorf("dedupcache: marking %s/%s present: %w", bucket, obj.Key, err)
		}
	}

	return nil
}

// tombstoneMissing marks file_exists=false for every row under prefix whose
// key was not present in the current listing. The missing keys are found
// by scanning the cached rows in Go rather than with a NOT IN clause, so
// a large listing never exceeds SQLite's host-parameter limit; the update
// then runs in bounded IN (...) chunks.
func tombstoneMissing(ctx context.Context, tx *sql.Tx, bucket, prefix string, listing []StoreObject, now int64) (int, error) {
	listed := make(map[string]bool, len(listing))
	for _, obj := range listing {
		listed[obj.Key] = true
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT s3_path FROM s3_files WHERE bucket = ? AND s3_path LIKE ? AND file_exists = 1`,
		bucket, prefix+"%")
	if err != nil {
		return 0, fmt.Errorf("dedupcache: scanning cached rows for bucket %s: %w", bucket, err)
	}
	defer rows.Close()

	var missing []string

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return 0, fmt.Errorf("dedupcache: scanning cached row for bucket %s: %w", bucket, err)
		}

		if !listed[key] {
			missing = append(missing, key)
		}
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("dedupcache: iterating cached rows for bucket %s: %w", bucket, err)
	}

	const chunkSize = 500

	for start := 0; start < len(missing); start += chunkSize {
		end := start + chunkSize
		if end > len(missing) {
			end = len(missing)
		}

		chunk := missing[start:end]

		placeholders := strings.Repeat("?,", len(chunk)-1) + "?"
		args := make([]any, 0, len(chunk)+2)
		args = append(args, now, bucket)

		for _, key := range chunk {
			args = append(args, key)
		}

		query := fmt.Sprintf(
			`UPDATE s3_files SET file_exists = 0, last_verified = ?
			 WHERE bucket = ? AND s3_path IN (%s)`,
			placeholders,
		)

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("dedupcache: tombstoning missing rows for bucket %s: %w", bucket, err)
		}
	}

	return len(missing), nil
}

func upsertBucketMetadataTx(ctx context.Context, tx *sql.Tx, bucket string, now int64, result ReconcileResult) error {
	_, err := tx.ExecContext(ctx, sqlUpsertBucketMetadata, bucket, now, result.FilesInStore, result.FilesRemoved)
	if err != nil {
		return fmt.Errorf("dedupcache: upserting bucket metadata for %s: %w", bucket, err)
	}

	return nil
}

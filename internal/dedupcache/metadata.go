package dedupcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sqlGetBucketMetadata = `SELECT last_full_sync, last_sync_files_in_s3, last_sync_files_removed
	FROM cache_metadata WHERE bucket = ?`

// GetBucketMetadata returns the last reconciliation summary for bucket, or
// ok=false if reconciliation has never run for it.
func (c *Cache) GetBucketMetadata(ctx context.Context, bucket string) (BucketMetadata, bool, error) {
	var (
		lastFullSync sql.NullInt64
		filesInStore sql.NullInt64
		filesRemoved sql.NullInt64
	)

	err := c.db.QueryRowContext(ctx, sqlGetBucketMetadata, bucket).Scan(&lastFullSync, &filesInStore, &filesRemoved)
	if err == sql.ErrNoRows {
		return BucketMetadata{}, false, nil
	}

	if err != nil {
		return BucketMetadata{}, false, fmt.Errorf("dedupcache: getting metadata for bucket %s: %w", bucket, err)
	}

	meta := BucketMetadata{Bucket: bucket}
	if lastFullSync.Valid {
		meta.LastFullSync = time.Unix(lastFullSync.Int64, 0).UTC()
	}

	meta.LastSyncFilesInStore = filesInStore.Int64
	meta.LastSyncFilesRemoved = filesRemoved.Int64

	return meta, true, nil
}

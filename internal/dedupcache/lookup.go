package dedupcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sqlLookupByPath = `SELECT file_exists, last_verified FROM s3_files
	WHERE bucket = ? AND s3_path = ?`

const sqlLookupByFilenameSize = `SELECT 1 FROM s3_files
	WHERE bucket = ? AND filename = ? AND file_size = ? AND file_exists = 1
	LIMIT 1`

const sqlFindKeyByFilenameSize = `SELECT s3_path FROM s3_files
	WHERE bucket = ? AND filename = ? AND file_size = ? AND file_exists = 1
	ORDER BY last_verified DESC
	LIMIT 1`

// CheckPath is the path lookup: it
// returns Exists or NotExists only if the cached row was last verified
// within the cache's TTL; otherwise Unknown, including when no row exists
// at all.
func (c *Cache) CheckPath(ctx context.Context, bucket, key string) (Existence, error) {
	var (
		fileExists  bool
		lastVerUnix int64
	)

	err := c.db.QueryRowContext(ctx, sqlLookupByPath, bucket, key).Scan(&fileExists, &lastVerUnix)
	if err == sql.ErrNoRows {
		return Unknown, nil
	}

	if err != nil {
		return Unknown, fmt.Errorf("dedupcache: checking path %s/%s: %w", bucket, key, err)
	}

	lastVerified := time.Unix(lastVerUnix, 0).UTC()
	if c.nowFunc().Sub(lastVerified) > c.pathTTL {
		return Unknown, nil
	}

	if fileExists {
		return Exists, nil
	}

	return NotExists, nil
}

// CheckByFilenameSize is the filename+size lookup. No TTL applies: an
// upload we performed does not expire.
// It returns true only if some row for (bucket, filename, size) has
// file_exists = true.
func (c *Cache) CheckByFilenameSize(ctx context.Context, bucket, filename string, size int64) (bool, error) {
	var one int

	err := c.db.QueryRowContext(ctx, sqlLookupByFilenameSize, bucket, filename, size).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("dedupcache: checking filename+size %s/%d: %w", filename, size, err)
	}

	return true, nil
}

// FindKeyByFilenameSize returns the most recently verified object key on
// record for (bucket, filename, size) among rows known to exist, used by
// the delete job scan to recover a file's expected object key without a
// fresh store HEAD.
func (c *Cache) FindKeyByFilenameSize(ctx context.Context, bucket, filename string, size int64) (string, bool, error) {
	var key string

	err := c.db.QueryRowContext(ctx, sqlFindKeyByFilenameSize, bucket, filename, size).Scan(&key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("dedupcache: finding key for %s/%d: %w", filename, size, err)
	}

	return key, true, nil
}

package dedupcache

import (
	"context"
	"fmt"
)

const sqlInvalidateBucket = `DELETE FROM s3_files WHERE bucket = ?`

// Invalidate deletes every cached row for bucket, returning the number of
// rows removed.
func (c *Cache) Invalidate(ctx context.Context, bucket string) (int, error) {
	res, err := c.db.ExecContext(ctx, sqlInvalidateBucket, bucket)
	if err != nil {
		return 0, fmt.Errorf("dedupcache: invalidating bucket %s: %w", bucket, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("dedupcache: counting invalidated rows for bucket %s: %w", bucket, err)
	}

	return int(affected), nil
}

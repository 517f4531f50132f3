package dedupcache

import (
	"context"
	"database/sql"
	"fmt"
)

// LogShipState records the locally known size of a log artifact last
// shipped to the object store, keyed by its path relative to the log
// root.
type LogShipState struct {
	RelativePath string
	LocalSize    int64
	ShippedAt    int64
}

const sqlGetLogShipState = `SELECT relative_path, local_size, shipped_at
	FROM logship_state WHERE relative_path = ?`

// GetLogShipState returns the last recorded ship state for relativePath,
// or ok=false if it has never been shipped.
func (c *Cache) GetLogShipState(ctx context.Context, relativePath string) (LogShipState, bool, error) {
	var s LogShipState

	err := c.db.QueryRowContext(ctx, sqlGetLogShipState, relativePath).
		Scan(&s.RelativePath, &s.LocalSize, &s.ShippedAt)
	if err == sql.ErrNoRows {
		return LogShipState{}, false, nil
	}

	if err != nil {
		return LogShipState{}, false, fmt.Errorf("dedupcache: get logship state %s: %w", relativePath, err)
	}

	return s, true, nil
}

const sqlUpsertLogShipState = `INSERT INTO logship_state (relative_path, local_size, shipped_at)
	VALUES (?, ?, ?)
	ON CONFLICT(relative_path) DO UPDATE SET
		local_size = excluded.local_size,
		shipped_at = excluded.shipped_at`

// PutLogShipState records relativePath as shipped at the given size and
// timestamp (unix seconds).
func (c *Cache) PutLogShipState(ctx context.Context, relativePath string, size, shippedAt int64) error {
	if _, err := c.db.ExecContext(ctx, sqlUpsertLogShipState, relativePath, size, shippedAt); err != nil {
		return fmt.Errorf("dedupcache: upsert logship state %s: %w", relativePath, err)
	}

	return nil
}

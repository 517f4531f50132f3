// Package dedupcache is the persistent key/value cache mapping object-store
// keys and (filename, size) pairs to known upload state, so the upload and
// delete job engines never re-upload or re-verify against the store more
// often than necessary.
package dedupcache

import "time"

// Existence is the tri-state result of a path lookup: a cached row can be
// known-true, known-false (tombstoned), or unknown because no row exists or
// the row has gone stale past the TTL.
type Existence int

const (
	Unknown Existence = iota
	Exists
	NotExists
)

// String renders the existence state for logging.
func (e Existence) String() string {
	switch e {
	case Exists:
		return "exists"
	case NotExists:
		return "not_exists"
	default:
		return "unknown"
	}
}

// Row is a single s3_files record.
type Row struct {
	Bucket       string
	Key          string
	Exists       bool
	Filename     string
	Size         int64
	CachedAt     time.Time
	LastVerified time.Time
}

// UpsertEntry is one (key, exists, filename, size) tuple submitted to a
// bulk upsert.
type UpsertEntry struct {
	Key      string
	Exists   bool
	Filename string
	Size     int64
}

// BucketMetadata is the per-bucket reconciliation summary row.
type BucketMetadata struct {
	Bucket               string
	LastFullSync         time.Time
	LastSyncFilesInStore int64
	LastSyncFilesRemoved int64
}

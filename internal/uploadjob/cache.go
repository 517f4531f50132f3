package uploadjob

import (
	"context"

	"github.com/tonimelisma/modaq-upload/internal/dedupcache"
)

// Cache is the dedup-cache seam the engine needs. It is satisfied by
// *dedupcache.Cache; declared as an interface here so tests can substitute
// a fake without a real SQLite database.
type Cache interface {
	CheckPath(ctx context.Context, bucket, key string) (dedupcache.Existence, error)
	CheckByFilenameSize(ctx context.Context, bucket, filename string, size int64) (bool, error)
	Upsert(ctx context.Context, bucket string, e dedupcache.UpsertEntry) error
	UpsertAll(ctx context.Context, bucket string, entries []dedupcache.UpsertEntry) error
}

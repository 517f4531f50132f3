package deletejob

import "context"

// Cache is the subset of dedupcache.Cache the Scan operation needs: a
// filename+size lookup that returns the object key the upload side wrote,
// if any.
type Cache interface {
	FindKeyByFilenameSize(ctx context.Context, bucket, filename string, size int64) (string, bool, error)
}

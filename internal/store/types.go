package store

import (
	"context"
	"io"
	"time"
)

// ProgressFunc is invoked repeatedly during Put with monotonically
// non-decreasing bytesUploaded; totalBytes is the full object size.
type ProgressFunc func(bytesUploaded, totalBytes int64)

// ObjectMetadata is the result of HeadMetadata.
type ObjectMetadata struct {
	Size         int64
	ETag         string // surrounding quotes stripped; "-N" multipart suffix preserved
	LastModified time.Time
	ContentType  string
}

// Object is one entry in a List result.
type Object struct {
	Key  string
	Size int64
	ETag string
}

// ListResult is the flattened result of List, hiding the underlying SDK's
// pagination from callers.
type ListResult struct {
	Objects        []Object
	CommonPrefixes []string
}

// Gateway is the dependency-injected seam for all object-store operations
// the job engines need. S3Gateway is the only production implementation;
// tests substitute a fake.
type Gateway interface {
	// Head reports whether an object exists, treating the store's
	// "not found" response as a false result rather than an error.
	Head(ctx context.Context, bucket, key string) (exists bool, err error)

	// HeadMetadata fetches size/etag/last-modified/content-type for an
	// object.
	HeadMetadata(ctx context.Context, bucket, key string) (ObjectMetadata, error)

	// Put streams size bytes of body to (bucket, key), invoking progress
	// as the body is read if non-nil.
	Put(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64, progress ProgressFunc) error

	// List returns every object whose key begins with prefix. An empty
	// delimiter means "recurse through all keys under prefix"; a non-empty
	// delimiter groups keys into CommonPrefixes the way S3 does natively.
	List(ctx context.Context, bucket, prefix, delimiter string, max int) (ListResult, error)

	// Validate probes bucket accessibility, classifying the failure mode
	// rather than just returning a raw error.
	Validate(ctx context.Context, bucket string) ValidationStatus
}

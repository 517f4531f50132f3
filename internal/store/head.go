package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Head reports whether an object exists, treating S3's "not found"
// response as a false result rather than an error.
func (g *S3Gateway) Head(ctx context.Context, bucket, key string) (bool, error) {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	if isNotFound(err) {
		return false, nil
	}

	return false, fmt.Errorf("store: head %s/%s: %w", bucket, key, classifyError(err))
}

// HeadMetadata fetches an object's size/etag/last-modified/content-type.
// ETag is returned with surrounding quotes stripped; the "-N" multipart
// suffix is preserved since downstream verification treats it as a literal
// value.
func (g *S3Gateway) HeadMetadata(ctx context.Context, bucket, key string) (ObjectMetadata, error) {
	out, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectMetadata{}, fmt.Errorf("store: head metadata %s/%s: %w", bucket, key, ErrNotFound)
		}

		return ObjectMetadata{}, fmt.Errorf("store: head metadata %s/%s: %w", bucket, key, classifyError(err))
	}

	meta := ObjectMetadata{
		Size: aws.ToInt64(out.ContentLength),
		ETag: unquoteETag(aws.ToString(out.ETag)),
	}

	if out.LastModified != nil {
		meta.LastModified = *out.LastModified
	}

	if out.ContentType != nil {
		meta.ContentType = *out.ContentType
	}

	return meta, nil
}

// unquoteETag strips the surrounding double quotes S3 always wraps ETags
// in, preserving any trailing "-N" multipart-part-count suffix.
func unquoteETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// isNotFound reports whether err represents S3's "object does not exist"
// response, across both the typed NotFound error and the generic 404
// status some S3-compatible endpoints return without the typed shape.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}

	return false
}

// classifyError maps an S3 SDK error to one of this package's sentinels,
// falling back to wrapping the original error for anything else.
func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "403":
			return fmt.Errorf("%w: %s", ErrAccessDenied, apiErr.ErrorMessage())
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "MissingCredentials":
			return fmt.Errorf("%w: %s", ErrNoCredentials, apiErr.ErrorMessage())
		}
	}

	return err
}

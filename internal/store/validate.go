package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Validate HEADs bucket, classifying the outcome rather than returning a
// raw error.
func (g *S3Gateway) Validate(ctx context.Context, bucket string) ValidationStatus {
	_, err := g.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return ValidationOK
	}

	if isNotFound(err) {
		return ValidationNotExists
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "403":
			return ValidationAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "MissingCredentials":
			return ValidationNoCredentials
		}
	}

	g.logger.Warn("bucket validation failed with unclassified error",
		slog.String("bucket", bucket),
		slog.String("error", err.Error()),
	)

	return ValidationOther
}

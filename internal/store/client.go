package store

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Gateway is the production Gateway implementation, built on
// aws-sdk-go-v2/service/s3. One Client struct, one file per operation
// family — mirroring the shape of a typical generated-SDK wrapper client,
// applied here to S3 instead of a REST API client built by hand.
type S3Gateway struct {
	client *s3.Client
	logger *slog.Logger
}

// NewS3Gateway resolves AWS credentials/region via the SDK's default chain
// (profile, environment, EC2/ECS metadata, in that order), optionally
// pinned to a named profile and region, and returns a ready-to-use
// S3Gateway. Core scope never performs its own OAuth/credential dance
// — the SDK's own chain is the sole credential source.
func NewS3Gateway(ctx context.Context, profile, region string, logger *slog.Logger) (*S3Gateway, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if profile != "" {
		optFns = append(optFns, awsconfig.WithSharedConfigProfile(profile))
	}

	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("store: loading AWS config: %w", err)
	}

	return &S3Gateway{
		client: s3.NewFromConfig(cfg),
		logger: logger,
	}, nil
}

// NewS3GatewayFromClient wraps an already-configured *s3.Client, letting
// tests point the gateway at a local S3-compatible endpoint (e.g. MinIO).
func NewS3GatewayFromClient(client *s3.Client, logger *slog.Logger) *S3Gateway {
	return &S3Gateway{client: client, logger: logger}
}

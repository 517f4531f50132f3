//go:build integration

package store_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/modaq-upload/internal/store"
	"github.com/tonimelisma/modaq-upload/testutil"
)

// bucketEnvVar names the scratch bucket integration tests may write to.
// The bucket must also appear in MODAQ_ALLOWED_TEST_BUCKETS.
const bucketEnvVar = "MODAQ_TEST_BUCKET"

func TestMain(m *testing.M) {
	root := testutil.FindModuleRoot(".")
	testutil.LoadDotEnv(filepath.Join(root, ".env"))
	testutil.ValidateAllowlist(bucketEnvVar)

	os.Exit(m.Run())
}

func integrationGateway(t *testing.T) (*store.S3Gateway, string) {
	t.Helper()

	gw, err := store.NewS3Gateway(context.Background(),
		os.Getenv("MODAQ_AWS_PROFILE"), os.Getenv("MODAQ_AWS_REGION"),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return gw, os.Getenv(bucketEnvVar)
}

func TestIntegration_PutHeadRoundTrip(t *testing.T) {
	gw, bucket := integrationGateway(t)
	ctx := context.Background()

	key := "year=2024/month=06/day=15/hour=14/minute=30/integration-roundtrip.mcap"
	content := []byte("integration test object body")

	err := gw.Put(ctx, bucket, key, bytes.NewReader(content), int64(len(content)), nil)
	require.NoError(t, err)

	exists, err := gw.Head(ctx, bucket, key)
	require.NoError(t, err)
	require.True(t, exists)

	meta, err := gw.HeadMetadata(ctx, bucket, key)
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), meta.Size)
	require.NotEmpty(t, meta.ETag)
}

func TestIntegration_HeadMissingObject(t *testing.T) {
	gw, bucket := integrationGateway(t)

	exists, err := gw.Head(context.Background(), bucket, "year=1999/month=01/day=01/hour=00/minute=00/never-uploaded.mcap")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestIntegration_ValidateBucket(t *testing.T) {
	gw, bucket := integrationGateway(t)

	require.Equal(t, store.ValidationOK, gw.Validate(context.Background(), bucket))
}

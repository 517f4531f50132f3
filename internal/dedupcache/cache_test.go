package dedupcache

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(context.Background(), dbPath, discardLogger(), opts...)
	require.NoError(t, err)

	t.Cleanup(func() { c.Close() })

	return c
}

func TestOpen_CreatesSchema(t *testing.T) {
	c := openTestCache(t)

	_, ok, err := c.GetBucketMetadata(context.Background(), "nonexistent-bucket")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpsertAndCheckPath(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)

	err := c.Upsert(ctx, "my-bucket", UpsertEntry{
		Key: "year=2026/month=07/day=29/hour=08/minute=10/a.mcap", Exists: true, Filename: "a.mcap", Size: 100,
	})
	require.NoError(t, err)

	got, err := c.CheckPath(ctx, "my-bucket", "year=2026/month=07/day=29/hour=08/minute=10/a.mcap")
	require.NoError(t, err)
	require.Equal(t, Exists, got)
}

func TestCheckPath_UnknownWhenAbsent(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)

	got, err := c.CheckPath(ctx, "my-bucket", "year=2026/month=07/day=29/hour=08/minute=10/missing.mcap")
	require.NoError(t, err)
	require.Equal(t, Unknown, got)
}

func TestCheckPath_UnknownAfterTTLExpiry(t *testing.T) {
	ctx := context.Background()

	start := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	current := start

	c := openTestCache(t, WithPathTTL(time.Hour), withNowFunc(func() time.Time { return current }))

	key := "year=2026/month=07/day=29/hour=08/minute=10/a.mcap"
	require.NoError(t, c.Upsert(ctx, "b", UpsertEntry{Key: key, Exists: true, Filename: "a.mcap", Size: 1}))

	got, err := c.CheckPath(ctx, "b", key)
	require.NoError(t, err)
	require.Equal(t, Exists, got)

	current = start.Add(2 * time.Hour)

	got, err = c.CheckPath(ctx, "b", key)
	require.NoError(t, err)
	require.Equal(t, Unknown, got)
}

func TestCheckByFilenameSize_NoTTL(t *testing.T) {
	ctx := context.Background()

	start := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	current := start

	c := openTestCache(t, WithPathTTL(time.Hour), withNowFunc(func() time.Time { return current }))

	key := "year=2026/month=07/day=29/hour=08/minute=10/a.mcap"
	require.NoError(t, c.Upsert(ctx, "b", UpsertEntry{Key: key, Exists: true, Filename: "a.mcap", Size: 42}))

	current = start.Add(24 * time.Hour)

	uploaded, err := c.CheckByFilenameSize(ctx, "b", "a.mcap", 42)
	require.NoError(t, err)
	require.True(t, uploaded, "filename+size lookup has no TTL")
}

func TestCheckByFilenameSize_FalseWhenTombstoned(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)

	key := "year=2026/month=07/day=29/hour=08/minute=10/a.mcap"
	require.NoError(t, c.Upsert(ctx, "b", UpsertEntry{Key: key, Exists: false, Filename: "a.mcap", Size: 42}))

	uploaded, err := c.CheckByFilenameSize(ctx, "b", "a.mcap", 42)
	require.NoError(t, err)
	require.False(t, uploaded)
}

func TestUpsert_PreservesCachedAtAcrossUpdates(t *testing.T) {
	ctx := context.Background()

	start := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	current := start

	c := openTestCache(t, withNowFunc(func() time.Time { return current }))

	key := "year=2026/month=07/day=29/hour=08/minute=10/a.mcap"
	require.NoError(t, c.Upsert(ctx, "b", UpsertEntry{Key: key, Exists: true, Filename: "a.mcap", Size: 1}))

	current = start.Add(time.Hour)
	require.NoError(t, c.Upsert(ctx, "b", UpsertEntry{Key: key, Exists: true, Filename: "a.mcap", Size: 1}))

	var cachedAt int64
	require.NoError(t, c.db.QueryRowContext(ctx, `SELECT cached_at FROM s3_files WHERE bucket=? AND s3_path=?`, "b", key).Scan(&cachedAt))
	require.Equal(t, start.Unix(), cachedAt)
}

func TestFindKeyByFilenameSize(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t)

	key := "year=2026/month=07/day=29/hour=08/minute=10/a.mcap"
	require.NoError(t, c.Upsert(ctx, "b", UpsertEntry{Key: key, Exists: true, Filename: "a.mcap", Size: 9}))

	gotKey, ok, err := c.FindKeyByFilenameSize(ctx, "b", "a.mcap", 9)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, key, gotKey)

	_, ok, err = c.FindKeyByFilenameSize(ctx, "b", "a.mcap", 10)
	require.NoError(t, err)
	require.False(t, ok)
}

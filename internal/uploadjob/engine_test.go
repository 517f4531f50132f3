package uploadjob

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/modaq-upload/internal/dedupcache"
	"github.com/tonimelisma/modaq-upload/internal/keyderiver"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

const testBucket = "recordings"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestEngine builds an Engine wired to fakes, a fixed clock, and
// sequential job IDs, suitable for deterministic assertions.
func newTestEngine(t *testing.T, cache *fakeCache, gw *fakeGateway, opts ...Option) *Engine {
	t.Helper()

	hub := streamhub.New()
	fixedNow := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	n := 0
	baseOpts := []Option{
		withClock(func() time.Time { return fixedNow }),
		withIDFunc(func() string { n++; return "job-" + itoa(int64(n)) }),
		WithCPUWorkers(2),
		WithIOWorkers(2),
	}

	return New(cache, gw, hub, nil, t.TempDir(), testLogger(), append(baseOpts, opts...)...)
}

// writeRecording creates a file named with an embedded timestamp the
// filename regex can extract, with the given content.
func writeRecording(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	return path
}

func mustWriteBytes(t *testing.T, n int) []byte {
	t.Helper()
	return bytes.Repeat([]byte{'x'}, n)
}

// mustTime parses a "YYYY_MM_DD_HH_MM_SS" stamp the same way
// keyderiver.ExtractFromFilename would, for constructing expected keys.
func mustTime(t *testing.T, stamp string) time.Time {
	t.Helper()

	ts, ok := keyderiver.ExtractFromFilename(stamp + ".mcap")
	require.True(t, ok, "stamp %q did not parse", stamp)

	return ts
}

func upsertEntryExists(key, filename string, size int64) dedupcache.UpsertEntry {
	return dedupcache.UpsertEntry{Key: key, Exists: true, Filename: filename, Size: size}
}

func upsertEntryNotExists(key, filename string, size int64) dedupcache.UpsertEntry {
	return dedupcache.UpsertEntry{Key: key, Exists: false, Filename: filename, Size: size}
}

func newHubForTest() *streamhub.Hub {
	return streamhub.New()
}

func sequentialIDFunc() func() string {
	n := 0
	return func() string {
		n++
		return "job-" + itoa(int64(n))
	}
}

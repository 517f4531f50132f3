package deletejob

import (
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

const testBucket = "recordings"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T, cache *fakeCache, gw *fakeGateway, opts ...Option) *Engine {
	t.Helper()

	hub := streamhub.New()
	fixedNow := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	n := 0
	baseOpts := []Option{
		withClock(func() time.Time { return fixedNow }),
		withIDFunc(func() string { n++; return "job-" + itoa(int64(n)) }),
		WithHashWorkers(2),
		WithVerifyWorkers(2),
	}

	return New(cache, gw, hub, nil, testLogger(), append(baseOpts, opts...)...)
}

func writeLocalFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	return path
}

func md5Hex(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

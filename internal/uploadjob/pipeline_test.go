package uploadjob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/modaq-upload/internal/keyderiver"
)

func TestAnalyzeAndUpload_OverlapsParseAndUpload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cache := newFakeCache()
	gw := newFakeGateway()
	e := newTestEngine(t, cache, gw)

	a := writeRecording(t, dir, "2024_06_01_10_30_00.mcap", mustWriteBytes(t, 10))
	b := writeRecording(t, dir, "2024_06_01_11_30_00.mcap", mustWriteBytes(t, 10))

	job, err := e.Create(ctx, []string{a, b}, testBucket, WithAutoUpload())
	require.NoError(t, err)
	assert.True(t, job.AutoUpload)

	require.NoError(t, e.AnalyzeAndUpload(ctx, job, false))

	assert.Equal(t, JobStatusCompleted, job.Status)

	for _, f := range job.Files {
		assert.Equal(t, FileStatusCompleted, f.Status)
		assert.NotEmpty(t, f.Key)
	}
}

func TestAnalyzeAndUpload_SkipsDuplicateWhenRequested(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cache := newFakeCache()
	gw := newFakeGateway()
	e := newTestEngine(t, cache, gw)

	path := writeRecording(t, dir, "2024_06_01_10_30_00.mcap", mustWriteBytes(t, 10))
	// A cache-only pre-filter leaves the key unresolved in the cache, so the
	// pipeline's own store HEAD is what finds the duplicate.
	job, err := e.Create(ctx, []string{path}, testBucket, WithCacheOnlyPreFilter())
	require.NoError(t, err)

	f := job.Files[0]
	gw.setExists(keyderiver.DeriveKey(mustTime(t, "2024_06_01_10_30_00"), f.Filename))

	require.NoError(t, e.AnalyzeAndUpload(ctx, job, true))

	assert.Equal(t, FileStatusSkipped, job.Files[0].Status)
	assert.Equal(t, JobStatusCompleted, job.Status)
}

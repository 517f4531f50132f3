package uploadjob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_RemovesOnlyStaleTerminalJobs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cache := newFakeCache()
	gw := newFakeGateway()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	e := New(cache, gw, newHubForTest(), nil, t.TempDir(), testLogger(),
		withClock(func() time.Time { return now }),
		withIDFunc(sequentialIDFunc()),
		WithCPUWorkers(1), WithIOWorkers(1))

	stalePath := writeRecording(t, dir, "2024_06_01_10_30_00.mcap", mustWriteBytes(t, 5))
	staleJob, err := e.Create(ctx, []string{stalePath}, testBucket)
	require.NoError(t, err)
	_, err = e.Cancel(ctx, staleJob.ID)
	require.NoError(t, err)

	freshPath := writeRecording(t, dir, "2024_06_01_11_30_00.mcap", mustWriteBytes(t, 5))
	freshJob, err := e.Create(ctx, []string{freshPath}, testBucket)
	require.NoError(t, err)

	removed := e.Janitor(time.Hour)
	assert.Equal(t, 0, removed, "nothing is old enough yet")

	// advance the clock past staleJob's completed_at + 1h by swapping now.
	later := now.Add(2 * time.Hour)
	e.now = func() time.Time { return later }

	removed = e.Janitor(time.Hour)
	assert.Equal(t, 1, removed)

	_, err = e.Get(staleJob.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = e.Get(freshJob.ID)
	assert.NoError(t, err)
}

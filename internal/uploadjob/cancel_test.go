package uploadjob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancel_MarksNonTerminalFilesCancelledAndFiresTerminalOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cache := newFakeCache()
	gw := newFakeGateway()

	terminalFired := 0
	e := newTestEngine(t, cache, gw, WithOnTerminal(func(_ context.Context, _ *Job) {
		terminalFired++
	}))

	path := writeRecording(t, dir, "2024_06_01_10_30_00.mcap", mustWriteBytes(t, 10))
	job, err := e.Create(ctx, []string{path}, testBucket)
	require.NoError(t, err)

	ok, err := e.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, job.IsCancelled())
	assert.Equal(t, JobStatusCancelled, job.Status)
	assert.Equal(t, FileStatusCancelled, job.Files[0].Status)
	assert.Equal(t, 1, terminalFired)

	// Cancelling an already-terminal job is a no-op as far as the
	// terminal side effects go: claimTerminal only ever returns true once.
	ok, err = e.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, terminalFired)
}

func TestCancel_UnknownJobReturnsNotFound(t *testing.T) {
	e := newTestEngine(t, newFakeCache(), newFakeGateway())

	_, err := e.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

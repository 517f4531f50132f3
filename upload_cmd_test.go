package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/modaq-upload/internal/streamhub"
	"github.com/tonimelisma/modaq-upload/internal/uploadjob"
)

func newTestUploadJob(status uploadjob.JobStatus, files ...*uploadjob.FileState) *uploadjob.Job {
	job := &uploadjob.Job{
		ID:        "job-123",
		Bucket:    "test-bucket",
		Status:    status,
		CreatedAt: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
	}

	for _, f := range files {
		job.Files = append(job.Files, f)
	}

	return job
}

func TestPrintJobSummary_TextMode(t *testing.T) {
	job := newTestUploadJob(uploadjob.JobStatusCompleted,
		&uploadjob.FileState{Filename: "a.mcap", Status: uploadjob.FileStatusCompleted, Size: 100},
		&uploadjob.FileState{Filename: "b.mcap", Status: uploadjob.FileStatusSkipped, Size: 200},
		&uploadjob.FileState{Filename: "c.mcap", Status: uploadjob.FileStatusFailed, Size: 50},
	)

	cc := &CLIContext{Flags: CLIFlags{}}

	out := captureStdout(t, func() {
		require.NoError(t, printJobSummary(cc, job.ID, job))
	})

	assert.Contains(t, out, "job-123")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "1 completed")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "1 failed")
}

func TestPrintJobSummary_JSONMode(t *testing.T) {
	job := newTestUploadJob(uploadjob.JobStatusReady,
		&uploadjob.FileState{Filename: "a.mcap", Status: uploadjob.FileStatusReady, Size: 100},
	)

	cc := &CLIContext{Flags: CLIFlags{JSON: true}}

	out := captureStdout(t, func() {
		require.NoError(t, printJobSummary(cc, job.ID, job))
	})

	assert.Contains(t, out, `"ID": "job-123"`)
	assert.Contains(t, out, `"Status": "ready"`)
}

func TestUploadJobSnapshot_CountsByStatus(t *testing.T) {
	job := newTestUploadJob(uploadjob.JobStatusUploading,
		&uploadjob.FileState{Filename: "a.mcap", Status: uploadjob.FileStatusCompleted, Size: 100},
		&uploadjob.FileState{Filename: "b.mcap", Status: uploadjob.FileStatusFailed, Size: 200},
		&uploadjob.FileState{Filename: "c.mcap", Status: uploadjob.FileStatusSkipped, Size: 50},
		&uploadjob.FileState{Filename: "d.mcap", Status: uploadjob.FileStatusUploading, Size: 400, BytesUploaded: 150},
	)

	snapshot := uploadJobSnapshot(job)
	event, ok := snapshot()
	require.True(t, ok)

	progress, isUploadProgress := event.(streamhub.UploadProgress)
	require.True(t, isUploadProgress)

	assert.Equal(t, "job-123", progress.JobID())
	assert.Equal(t, "uploading", progress.Status)
	assert.Equal(t, 4, progress.FilesTotal)
	assert.Equal(t, 1, progress.FilesUploaded)
	assert.Equal(t, 1, progress.FilesFailed)
	assert.Equal(t, 1, progress.FilesSkipped)
	assert.Equal(t, int64(250), progress.BytesUploaded) // 100 completed + 150 in-flight
	assert.Len(t, progress.Files, 1)
	assert.Equal(t, "d.mcap", progress.Files[0].Filename)
}

func TestUploadJobSnapshot_TerminalJobYieldsTerminalEvent(t *testing.T) {
	job := newTestUploadJob(uploadjob.JobStatusCompleted,
		&uploadjob.FileState{Filename: "a.mcap", Status: uploadjob.FileStatusCompleted, Size: 100},
	)
	job.CompletedAt = time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	snapshot := uploadJobSnapshot(job)
	event, ok := snapshot()
	require.True(t, ok)

	terminal, isTerminal := event.(streamhub.Terminal)
	require.True(t, isTerminal, "terminal job must render as a Terminal envelope, got %T", event)

	assert.Equal(t, "job-123", terminal.JobID())
	assert.Equal(t, "completed", terminal.Status)
	assert.Equal(t, job.CompletedAt, terminal.FinishedAt)
}

// A subscriber attaching after the job already finished must see the
// Terminal envelope end its stream immediately, not fall into the poll
// loop.
func TestUploadJobSnapshot_LateSubscriberReturnsPromptly(t *testing.T) {
	job := newTestUploadJob(uploadjob.JobStatusFailed)
	job.CompletedAt = time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	hub := streamhub.New()

	ch := hub.Subscribe(context.Background(), job.ID, uploadJobSnapshot(job))

	var got []streamhub.Event
	for e := range ch {
		got = append(got, e)
	}

	require.Len(t, got, 1)
	_, isTerminal := got[0].(streamhub.Terminal)
	assert.True(t, isTerminal)
	assert.Equal(t, 0, hub.SubscriberCount(job.ID))
}

func TestPrintJobSummary_TextMode_IncludesFileTable(t *testing.T) {
	job := newTestUploadJob(uploadjob.JobStatusCompleted,
		&uploadjob.FileState{Filename: "a.mcap", Status: uploadjob.FileStatusCompleted, Size: 5242880, BytesUploaded: 5242880},
	)

	cc := &CLIContext{Flags: CLIFlags{}}

	out := captureStdout(t, func() {
		require.NoError(t, printJobSummary(cc, job.ID, job))
	})

	assert.Contains(t, out, "a.mcap")
	assert.Contains(t, out, "5.0 MB")
	assert.Contains(t, out, "FILE")
	assert.Contains(t, out, "SIZE")
}

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w
	t.Cleanup(func() { os.Stdout = old })

	fn()

	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)

	return buf.String()
}

package keyderiver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_PrefersContentOverFilename(t *testing.T) {
	dir := t.TempDir()
	// Filename timestamp deliberately differs from the content timestamp so
	// the test can tell which strategy won.
	path := filepath.Join(dir, "2020_01_01_00_00_00_recording.mcap")

	contentTS := time.Date(2026, 7, 29, 8, 15, 0, 0, time.UTC)

	writeTestMCAP(t, path, [][2]interface{}{
		{byte(opMessage), messageContent(uint64(contentTS.UnixNano()))},
	})

	desc, err := Derive(path)
	require.NoError(t, err)

	assert.True(t, contentTS.Equal(desc.Timestamp))
	assert.Equal(t, TimestampSourceContent, desc.TimestampSource)
	assert.Equal(t, filepath.Base(path), desc.Filename)
}

func TestDerive_FallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026_07_29_08_15_00_recording.bin")

	require.NoError(t, os.WriteFile(path, []byte("not mcap content"), 0o644))

	desc, err := Derive(path)
	require.NoError(t, err)

	assert.Equal(t, TimestampSourceFilename, desc.TimestampSource)
	assert.Equal(t, 2026, desc.Timestamp.Year())
}

func TestDerive_NoTimestampAvailable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording_no_ts.bin")

	require.NoError(t, os.WriteFile(path, []byte("no timestamp anywhere"), 0o644))

	_, err := Derive(path)
	assert.ErrorIs(t, err, ErrNoTimestamp)
}

func TestDerive_RejectsPreEpochTimestamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1970_01_01_00_00_00_recording.bin")

	require.NoError(t, os.WriteFile(path, []byte("irrelevant"), 0o644))

	_, err := Derive(path)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestDerive_PopulatesSizeAndModTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026_07_29_08_15_00_recording.bin")

	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	desc, err := Derive(path)
	require.NoError(t, err)

	assert.Equal(t, int64(len("hello world")), desc.Size)
	assert.False(t, desc.ModTime.IsZero())
}

package auditlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJournal_AppendWritesPartitionedJSONL(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	err := j.Append(Record{
		Timestamp: at,
		Level:     LevelInfo,
		Category:  CategoryUpload,
		Event:     "upload_started",
		Message:   "uploading foo.mcap",
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "json", "year=2026", "month=03", "day=05", "events.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "upload_started")
}

func TestJournal_AppendAppendsMultipleRecords(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.Append(Record{Timestamp: at, Level: LevelInfo, Category: CategoryApp, Event: "a", Message: "m1"}))
	require.NoError(t, j.Append(Record{Timestamp: at, Level: LevelInfo, Category: CategoryApp, Event: "b", Message: "m2"}))

	recs, err := Query(dir, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestJournal_WriteJobJournal(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	err := j.WriteJobJournal("job-123", at, Record{
		Timestamp: at,
		Level:     LevelInfo,
		Category:  CategoryUpload,
		Event:     "job_complete",
		Message:   "done",
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "json", "year=2026", "month=03", "day=05", "job-123.jsonl")
	_, err = os.Stat(path)
	require.NoError(t, err)
}

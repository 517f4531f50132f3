package auditlog

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteJobCSV_HeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 5, 13, 4, 5, 0, time.UTC)

	rows := []JobSummary{
		{
			JobID:             "job-abcdef12",
			Filename:          "recording-001.mcap",
			FileSizeBytes:     2048,
			S3Path:            "year=2026/month=03/day=05/hour=13/minute=00/recording-001.mcap",
			Status:            "completed",
			DataStartTime:     at,
			UploadStartedAt:   at,
			UploadCompletedAt: at.Add(2 * time.Second),
			UploadDurationSeconds: 2,
			UploadSpeedMbps:       8,
			IsDuplicate:           false,
			IsValid:               true,
		},
	}

	path, err := WriteJobCSV(dir, "job-abcdef12", at, rows)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, csvHeader, records[0])
	require.Equal(t, "job-abcdef12", records[1][0])
	require.Equal(t, "recording-001.mcap", records[1][1])
	require.Equal(t, "2.0 kB", records[1][3])
}

package auditlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// csvHeader is the summary's fixed column order; downstream consumers
// index by position.
var csvHeader = []string{
	"job_id", "filename", "file_size_bytes", "file_size_formatted", "s3_path",
	"status", "data_start_time", "upload_started_at", "upload_completed_at",
	"upload_duration_seconds", "upload_speed_mbps", "is_duplicate", "is_valid",
	"error_message",
}

// WriteJobCSV writes the per-job CSV summary, one row per file, under
// <logDirectory>/csv/year=.../upload-summary-HHMMSS-<short_id>.csv.
func WriteJobCSV(logDirectory, jobID string, at time.Time, rows []JobSummary) (string, error) {
	root := filepath.Join(logDirectory, "csv")
	path := jobCSVPath(root, at, jobID)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("auditlog: create csv dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("auditlog: create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("auditlog: write csv header: %w", err)
	}

	for _, r := range rows {
		if err := w.Write(csvRow(r)); err != nil {
			return "", fmt.Errorf("auditlog: write csv row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return "", fmt.Errorf("auditlog: flush csv: %w", err)
	}

	return path, nil
}

func csvRow(r JobSummary) []string {
	return []string{
		r.JobID,
		r.Filename,
		fmt.Sprintf("%d", r.FileSizeBytes),
		humanize.Bytes(uint64(r.FileSizeBytes)),
		r.S3Path,
		r.Status,
		formatTimeOrEmpty(r.DataStartTime),
		formatTimeOrEmpty(r.UploadStartedAt),
		formatTimeOrEmpty(r.UploadCompletedAt),
		fmt.Sprintf("%.3f", r.UploadDurationSeconds),
		fmt.Sprintf("%.3f", r.UploadSpeedMbps),
		fmt.Sprintf("%t", r.IsDuplicate),
		fmt.Sprintf("%t", r.IsValid),
		r.ErrorMessage,
	}
}

func formatTimeOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}

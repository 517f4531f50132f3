package uploadjob

import (
	"context"
	"log/slog"
	"os"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// onJobTerminal runs the terminal side-effect sequence:
// reclaim the temp dir, emit the terminal event immediately so subscribers
// unblock, then best-effort bookkeeping that never mutates job state.
func (e *Engine) onJobTerminal(ctx context.Context, job *Job) {
	snap := job.Snapshot()

	if snap.TempDir != "" {
		if err := os.RemoveAll(snap.TempDir); err != nil {
			e.logger.Warn("upload: temp dir cleanup failed",
				slog.String("job_id", job.ID), slog.String("dir", snap.TempDir), slog.String("error", err.Error()))
		}
	}

	e.hub.Publish(streamhub.NewTerminal(job.ID, string(snap.Status), snap.CompletedAt))

	e.writeTerminalArtifacts(snap)

	if e.onTerminal != nil {
		e.onTerminal(ctx, job)
	}
}

// writeTerminalArtifacts appends the audit journal entry and writes the
// per-job JSONL/CSV summaries. Failures are logged, never propagated —
// bookkeeping must not fail a finished job.
func (e *Engine) writeTerminalArtifacts(snap JobSnapshot) {
	e.logInfo(auditlog.CategoryUpload, "upload_job_terminal", "upload job reached terminal status", map[string]any{
		"job_id": snap.ID,
		"status": string(snap.Status),
	})

	if e.journal == nil {
		return
	}

	summaryRec := auditlog.Record{
		Timestamp: e.now(),
		Level:     auditlog.LevelInfo,
		Category:  auditlog.CategoryUpload,
		Event:     "upload_job_summary",
		Message:   "upload job " + snap.ID + " finished with status " + string(snap.Status),
		Metadata:  map[string]any{"job_id": snap.ID, "status": string(snap.Status)},
	}

	if err := e.journal.WriteJobJournal(snap.ID, e.now(), summaryRec); err != nil {
		e.logger.Warn("upload: job journal write failed", slog.String("job_id", snap.ID), slog.String("error", err.Error()))
	}

	rows := make([]auditlog.JobSummary, 0, len(snap.Files))

	for _, f := range snap.Files {
		rows = append(rows, fileSummaryRow(snap.ID, snap.Bucket, f))
	}

	if _, err := auditlog.WriteJobCSV(e.logDir, snap.ID, e.now(), rows); err != nil {
		e.logger.Warn("upload: csv summary write failed", slog.String("job_id", snap.ID), slog.String("error", err.Error()))
	}
}

func fileSummaryRow(jobID, bucket string, f *FileState) auditlog.JobSummary {
	row := auditlog.JobSummary{
		JobID:             jobID,
		Filename:          f.Filename,
		FileSizeBytes:     f.Size,
		S3Path:            f.Key,
		Status:            string(f.Status),
		DataStartTime:     f.Timestamp,
		UploadStartedAt:   f.UploadStartedAt,
		UploadCompletedAt: f.UploadCompletedAt,
		IsDuplicate:       f.Duplicate,
		IsValid:           f.Valid,
		ErrorMessage:      f.ErrorMessage,
	}

	if !f.UploadStartedAt.IsZero() && !f.UploadCompletedAt.IsZero() {
		dur := f.UploadCompletedAt.Sub(f.UploadStartedAt).Seconds()
		row.UploadDurationSeconds = dur

		if dur > 0 {
			megabits := float64(f.Size) * 8 / 1_000_000
			row.UploadSpeedMbps = megabits / dur
		}
	}

	return row
}

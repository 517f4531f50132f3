package deletejob

import (
	"context"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// Run drives a delete job through all three phases: hash,
// verify, then the strictly sequential unlink. Partial per-file failures
// never abort the job; cancellation is cooperative and checked between
// files and at each phase boundary.
func (e *Engine) Run(ctx context.Context, job *Job) error {
	var alreadyTerminal bool

	job.withLock(func() {
		if job.Status.IsTerminal() {
			alreadyTerminal = true
			return
		}

		job.Status = JobStatusVerifying
		if job.StartedAt.IsZero() {
			job.StartedAt = e.now()
		}
	})

	if alreadyTerminal {
		return nil
	}

	pending := job.filesWithStatus(FileStatusPending)

	if len(pending) > 0 && !job.IsCancelled() {
		if err := e.hashPhase(ctx, job, pending); err != nil {
			return err
		}
	}

	hashed := filterVerifying(pending)

	if len(hashed) > 0 && !job.IsCancelled() {
		if err := e.verifyPhase(ctx, job, hashed); err != nil {
			return err
		}
	}

	verified := job.filesWithStatus(FileStatusVerified)

	job.withLock(func() { job.Status = JobStatusDeleting })

	e.unlinkPhase(job, verified)

	status := computeDeleteStatus(job)

	var completedAt bool

	job.withLock(func() {
		job.Status = status
		if status.IsTerminal() {
			job.CompletedAt = e.now()
			completedAt = true
		}
	})

	snap := job.Snapshot()
	e.hub.Publish(streamhub.NewDeleteComplete(job.ID,
		countStatus(snap.Files, FileStatusDeleted),
		countStatus(snap.Files, FileStatusCancelled),
		countStatus(snap.Files, FileStatusFailed)+countStatus(snap.Files, FileStatusMismatch)))

	if completedAt && job.claimTerminal() {
		e.onJobTerminal(ctx, job)
	}

	return nil
}

// filterVerifying returns the subset of files still in FileStatusVerifying
// (i.e. survived the hash phase without failing or being cancelled).
func filterVerifying(files []*FileState) []*FileState {
	var out []*FileState

	for _, f := range files {
		if f.Status == FileStatusVerifying {
			out = append(out, f)
		}
	}

	return out
}

// computeDeleteStatus derives the job-level status once every file has
// reached a terminal per-file state: cancelled if the job was cancelled,
// completed if at least one file was deleted or there were no files to
// delete at all, else failed.
func computeDeleteStatus(job *Job) JobStatus {
	job.mu.Lock()
	defer job.mu.Unlock()

	if job.cancelled {
		return JobStatusCancelled
	}

	if len(job.Files) == 0 {
		return JobStatusCompleted
	}

	anyDeleted := false

	for _, f := range job.Files {
		if f.Status == FileStatusDeleted {
			anyDeleted = true
		}
	}

	if anyDeleted {
		return JobStatusCompleted
	}

	return JobStatusFailed
}

func (e *Engine) logRunComplete(job *Job, status JobStatus) {
	e.logInfo(auditlog.CategoryDelete, "delete_job_terminal", "delete job reached terminal status", map[string]any{
		"job_id": job.ID,
		"status": string(status),
	})
}

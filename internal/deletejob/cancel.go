package deletejob

import "context"

// Cancel is cooperative: pending, verifying, and verified files become
// cancelled; a file already mid-unlink is allowed to finish so no local
// file is left half-removed.
func (e *Engine) Cancel(ctx context.Context, jobID string) (bool, error) {
	job, err := e.Get(jobID)
	if err != nil {
		return false, err
	}

	job.withLock(func() {
		job.cancelled = true

		for _, f := range job.Files {
			if !f.Status.IsTerminal() && f.Status != FileStatusDeleting {
				f.Status = FileStatusCancelled
			}
		}
	})

	var becameTerminal bool

	job.withLock(func() {
		if job.Status.IsTerminal() {
			return
		}

		job.Status = JobStatusCancelled
		if job.CompletedAt.IsZero() {
			job.CompletedAt = e.now()
		}

		becameTerminal = true
	})

	if becameTerminal && job.claimTerminal() {
		e.onJobTerminal(ctx, job)
	}

	return true, nil
}

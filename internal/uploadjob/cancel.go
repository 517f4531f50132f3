package uploadjob

import "context"

// Cancel sets the job's cancel flag, marks every file not yet handed to a
// worker `cancelled`, and stops new uploads from being enqueued. In-flight
// uploads are allowed to finish — cancellation is cooperative, never
// abortive, to avoid leaving a partial object in the store. The terminal
// side-effect sequence runs exactly once.
func (e *Engine) Cancel(ctx context.Context, jobID string) (bool, error) {
	job, err := e.Get(jobID)
	if err != nil {
		return false, err
	}

	var becameTerminal bool

	job.withLock(func() {
		job.cancelled = true

		for _, f := range job.Files {
			if !f.Status.IsTerminal() && f.Status != FileStatusUploading {
				f.Status = FileStatusCancelled
			}
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

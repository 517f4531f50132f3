package deletejob

import (
	"context"

	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// onJobTerminal runs the terminal side-effect sequence, mirroring
// uploadjob's: emit the terminal event, then best-effort audit logging
// that never mutates job state.
func (e *Engine) onJobTerminal(ctx context.Context, job *Job) {
	snap := job.Snapshot()

	e.hub.Publish(streamhub.NewTerminal(job.ID, string(snap.Status), snap.CompletedAt))

	e.logRunComplete(job, snap.Status)

	if e.onTerminal != nil {
		e.onTerminal(ctx, job)
	}
}

package deletejob

import (
	"os"

	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// unlinkPhase is the final phase, strictly sequential on the
// caller's goroutine so an external interrupt never leaves an ambiguous
// half-deleted state. Each verified file transitions deleting -> deleted,
// or failed on a remove error.
func (e *Engine) unlinkPhase(job *Job, files []*FileState) {
	for _, f := range files {
		if job.IsCancelled() {
			job.withLock(func() { f.Status = FileStatusCancelled })
			continue
		}

		job.withLock(func() { f.Status = FileStatusDeleting })

		if err := os.Remove(f.LocalPath); err != nil {
			job.withLock(func() {
				f.Status = FileStatusFailed
				f.ErrorMessage = err.Error()
			})

			e.emitDeleteProgress(job)

			continue
		}

		job.withLock(func() {
			f.Status = FileStatusDeleted
			f.DeletedAt = e.now()
		})

		e.emitDeleteProgress(job)
	}
}

func (e *Engine) emitDeleteProgress(job *Job) {
	snap := job.Snapshot()

	verified := 0
	unlinked := 0

	for _, f := range snap.Files {
		switch f.Status {
		case FileStatusVerified, FileStatusDeleting, FileStatusDeleted:
			verified++
		}

		if f.Status == FileStatusDeleted {
			unlinked++
		}
	}

	e.hub.Publish(streamhub.NewDeleteProgress(job.ID, verified, unlinked, len(snap.Files)))
}

package uploadjob

import (
	"log/slog"
	"time"
)

// Janitor removes jobs whose completed_at is older than maxAge. It is a
// plain method, not a background goroutine; the CLI daemon command owns
// the ticking.
func (e *Engine) Janitor(maxAge time.Duration) int {
	cutoff := e.now().Add(-maxAge)

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0

	for id, job := range e.jobs {
		job.mu.Lock()
		stale := job.Status.IsTerminal() && !job.CompletedAt.IsZero() && job.CompletedAt.Before(cutoff)
		job.mu.Unlock()

		if stale {
			delete(e.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		e.logger.Info("upload: janitor swept stale jobs", slog.Int("removed", removed))
	}

	return removed
}

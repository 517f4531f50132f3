package deletejob

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
	"github.com/tonimelisma/modaq-upload/internal/store"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// DefaultHashWorkers and DefaultVerifyWorkers cap the hash and verify
// phase pools.
const (
	DefaultHashWorkers   = 4
	DefaultVerifyWorkers = 4
)

// Engine owns every delete job in the process, mirroring the
// uploadjob.Engine's single-map/per-job-mutex discipline.
type Engine struct {
	mu   sync.Mutex
	jobs map[string]*Job

	cache   Cache
	gateway store.Gateway
	hub     *streamhub.Hub
	journal *auditlog.Journal
	logger  *slog.Logger

	hashWorkers   int
	verifyWorkers int

	now   func() time.Time
	newID func() string

	onTerminal func(ctx context.Context, job *Job)
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithHashWorkers overrides the hash pool size (default DefaultHashWorkers).
func WithHashWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.hashWorkers = n
		}
	}
}

// WithVerifyWorkers overrides the verify pool size (default
// DefaultVerifyWorkers).
func WithVerifyWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.verifyWorkers = n
		}
	}
}

// WithOnTerminal registers a hook invoked after a job reaches a terminal
// status.
func WithOnTerminal(fn func(ctx context.Context, job *Job)) Option {
	return func(e *Engine) { e.onTerminal = fn }
}

func withClock(f func() time.Time) Option {
	return func(e *Engine) { e.now = f }
}

func withIDFunc(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// New builds an Engine. journal may be nil if audit-log side effects are
// not wanted (e.g. in unit tests).
func New(cache Cache, gateway store.Gateway, hub *streamhub.Hub, journal *auditlog.Journal, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		jobs:          make(map[string]*Job),
		cache:         cache,
		gateway:       gateway,
		hub:           hub,
		journal:       journal,
		logger:        logger,
		hashWorkers:   DefaultHashWorkers,
		verifyWorkers: DefaultVerifyWorkers,
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Get returns the job for id, or ErrJobNotFound.
func (e *Engine) Get(id string) (*Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	return job, nil
}

// ActiveJobs returns every job not in a terminal job status.
func (e *Engine) ActiveJobs() []*Job {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := make([]*Job, 0, len(e.jobs))

	for _, job := range e.jobs {
		if !job.Status.IsTerminal() {
			active = append(active, job)
		}
	}

	return active
}

// Janitor removes jobs whose completed_at is older than maxAge, mirroring
// uploadjob.Engine.Janitor.
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
		e.logger.Info("delete: janitor swept stale jobs", slog.Int("removed", removed))
	}

	return removed
}

func (e *Engine) register(job *Job) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.jobs[job.ID] = job
}

func (e *Engine) logInfo(category auditlog.Category, event, message string, metadata map[string]any) {
	if e.journal == nil {
		return
	}

	if err := e.journal.Append(auditlog.Record{
		Timestamp: e.now(),
		Level:     auditlog.LevelInfo,
		Category:  category,
		Event:     event,
		Message:   message,
		Metadata:  metadata,
	}); err != nil {
		e.logger.Warn("audit log append failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}

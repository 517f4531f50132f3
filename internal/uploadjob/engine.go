package uploadjob

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
	"github.com/tonimelisma/modaq-upload/internal/store"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// DefaultIOWorkers is the default size of the HEAD/PUT worker pool,
// kept independent of the CPU parse pool.
const DefaultIOWorkers = 4

// cpuWorkerCount returns max(1, NumCPU-1), the parse pool size.
func cpuWorkerCount() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}

	return n
}

// Engine owns every upload job in the process: a single process-wide job
// map guarded by one mutex on insert/evict, with each Job's own mutex
// guarding its mutation.
type Engine struct {
	mu   sync.Mutex
	jobs map[string]*Job

	cache   Cache
	gateway store.Gateway
	hub     *streamhub.Hub
	journal *auditlog.Journal
	logDir  string
	logger  *slog.Logger

	cpuWorkers int
	ioWorkers  int

	now   func() time.Time
	newID func() string

	// onTerminal is invoked (best effort, never blocking emission) after a
	// job reaches a terminal status; the CLI wires this to the log-ship
	// trigger.
	onTerminal func(ctx context.Context, job *Job)
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithCPUWorkers overrides the CPU pool size (default cpuWorkerCount()).
func WithCPUWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cpuWorkers = n
		}
	}
}

// WithIOWorkers overrides the IO pool size (default DefaultIOWorkers).
func WithIOWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.ioWorkers = n
		}
	}
}

// WithOnTerminal registers a hook invoked after a job reaches a terminal
// status, once its own bookkeeping (audit journal, CSV) has been attempted.
func WithOnTerminal(fn func(ctx context.Context, job *Job)) Option {
	return func(e *Engine) { e.onTerminal = fn }
}

// withClock overrides the engine's clock; used by tests.
func withClock(f func() time.Time) Option {
	return func(e *Engine) { e.now = f }
}

// withIDFunc overrides job ID generation; used by tests for deterministic
// ids.
func withIDFunc(f func() string) Option {
	return func(e *Engine) { e.newID = f }
}

// New builds an Engine. journal and logDir may be the zero value/empty
// string if audit-log side effects are not wanted (e.g. in unit tests).
func New(cache Cache, gateway store.Gateway, hub *streamhub.Hub, journal *auditlog.Journal, logDir string, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		jobs:       make(map[string]*Job),
		cache:      cache,
		gateway:    gateway,
		hub:        hub,
		journal:    journal,
		logDir:     logDir,
		logger:     logger,
		cpuWorkers: cpuWorkerCount(),
		ioWorkers:  DefaultIOWorkers,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
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

// Package uploadjob implements the Upload Job Engine: the
// per-job state machine that pre-filters, analyzes, deduplicates, and
// uploads recordings, with parallelism and live progress.
package uploadjob

import (
	"sync"
	"time"
)

// FileStatus is a single file's position in the per-file state machine.
type FileStatus string

// File states, in the order the state machine visits them.
const (
	FileStatusPending    FileStatus = "pending"
	FileStatusAnalyzing  FileStatus = "analyzing"
	FileStatusReady      FileStatus = "ready"
	FileStatusUploading  FileStatus = "uploading"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusSkipped    FileStatus = "skipped"
	FileStatusFailed     FileStatus = "failed"
	FileStatusCancelled  FileStatus = "cancelled"
)

// IsTerminal reports whether s is one of the four terminal file states.
func (s FileStatus) IsTerminal() bool {
	switch s {
	case FileStatusCompleted, FileStatusSkipped, FileStatusFailed, FileStatusCancelled:
		return true
	default:
		return false
	}
}

// JobStatus is the whole job's derived status.
type JobStatus string

// Job states.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusAnalyzing  JobStatus = "analyzing"
	JobStatusReady      JobStatus = "ready"
	JobStatusUploading  JobStatus = "uploading"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether s is one of the three terminal job statuses.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// FileState is one recording's progress through the state machine.
type FileState struct {
	Filename          string
	LocalPath         string
	Size              int64
	Status            FileStatus
	Key               string
	Timestamp         time.Time
	BytesUploaded     int64
	ErrorMessage      string
	Duplicate         bool
	Valid             bool
	UploadStartedAt   time.Time
	UploadCompletedAt time.Time
}

// snapshot returns a value copy of f, safe to read after the job mutex is
// released.
func (f *FileState) snapshot() FileState {
	return *f
}

// PreFilterStats summarizes one PreFilter pass.
type PreFilterStats struct {
	Total        int
	CacheSkipped int // filename+size cache hit: already uploaded, no parse needed
	CacheHits    int // path-cache (bucket,key) gave a definitive answer from the filename-regex timestamp
	StoreHits    int // batched store HEAD confirmed the derived key already exists
	NoTimestamp  int // filename regex found nothing; file still goes to ToParse
	ToParse      int
}

// Job is one upload job: an ordered list of file states plus job-level
// status, timestamps, and bookkeeping. All mutation happens under mu,
// inside engine workers.
type Job struct {
	ID             string
	Bucket         string
	Files          []*FileState
	Status         JobStatus
	CreatedAt      time.Time
	StartedAt      time.Time
	CompletedAt    time.Time
	TempDir        string
	AutoUpload     bool
	PreFilterStats PreFilterStats

	cancelled     bool
	terminalFired bool
	mu            sync.Mutex
}

// JobSnapshot is a point-in-time deep copy of a job's observable state,
// safe to read with no lock held (terminal events, status queries,
// CSV/JSONL artifacts).
type JobSnapshot struct {
	ID             string
	Bucket         string
	Files          []*FileState
	Status         JobStatus
	CreatedAt      time.Time
	StartedAt      time.Time
	CompletedAt    time.Time
	TempDir        string
	AutoUpload     bool
	PreFilterStats PreFilterStats
}

// Snapshot copies the job under its mutex.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	files := make([]*FileState, len(j.Files))

	for i, f := range j.Files {
		s := f.snapshot()
		files[i] = &s
	}

	return JobSnapshot{
		ID:             j.ID,
		Bucket:         j.Bucket,
		Files:          files,
		Status:         j.Status,
		CreatedAt:      j.CreatedAt,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
		TempDir:        j.TempDir,
		AutoUpload:     j.AutoUpload,
		PreFilterStats: j.PreFilterStats,
	}
}

// IsCancelled reports whether Cancel has been called on this job.
func (j *Job) IsCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.cancelled
}

// withLock runs fn with the job mutex held. Used internally by engine
// operations that need to read-then-write multiple fields atomically.
func (j *Job) withLock(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	fn()
}

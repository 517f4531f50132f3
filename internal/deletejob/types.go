// Package deletejob implements the Delete Job Engine: the
// three-phase state machine that hashes, verifies against the object
// store, and unlinks local recordings already known to be durably
// uploaded.
package deletejob

import (
	"sync"
	"time"
)

// FileStatus is a single file's position in the delete state machine.
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusVerifying  FileStatus = "verifying"
	FileStatusVerified   FileStatus = "verified"
	FileStatusDeleting   FileStatus = "deleting"
	FileStatusDeleted    FileStatus = "deleted"
	FileStatusMismatch   FileStatus = "mismatch"
	FileStatusFailed     FileStatus = "failed"
	FileStatusCancelled  FileStatus = "cancelled"
)

// IsTerminal reports whether s ends the file's lifecycle.
func (s FileStatus) IsTerminal() bool {
	switch s {
	case FileStatusDeleted, FileStatusMismatch, FileStatusFailed, FileStatusCancelled:
		return true
	default:
		return false
	}
}

// JobStatus is the whole delete job's derived status.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusVerifying  JobStatus = "verifying"
	JobStatusDeleting   JobStatus = "deleting"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether s ends the job's lifecycle.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// VerificationLevel records how thoroughly a file's object was confirmed
// to match before it was unlinked.
type VerificationLevel string

const (
	VerificationNone     VerificationLevel = ""
	VerificationSize     VerificationLevel = "size"
	VerificationMD5Size  VerificationLevel = "md5+size"
)

// FileState is one local recording's progress through the delete pipeline.
type FileState struct {
	LocalPath         string
	Filename          string
	Size              int64
	Key               string // expected object key, from the cache
	Status            FileStatus
	LocalMD5          string
	VerifiedLevel     VerificationLevel
	ErrorMessage      string
	HashStartedAt     time.Time
	HashCompletedAt   time.Time
	VerifiedAt        time.Time
	DeletedAt         time.Time
}

func (f *FileState) snapshot() FileState {
	return *f
}

// Job is one delete job: an ordered list of file states plus job-level
// status and bookkeeping, all mutated under mu inside engine workers.
type Job struct {
	ID          string
	Bucket      string
	Files       []*FileState
	Status      JobStatus
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	cancelled     bool
	terminalFired bool
	mu            sync.Mutex
}

// JobSnapshot is a point-in-time deep copy of a delete job's observable
// state, safe to read with no lock held.
type JobSnapshot struct {
	ID          string
	Bucket      string
	Files       []*FileState
	Status      JobStatus
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
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
		ID:          j.ID,
		Bucket:      j.Bucket,
		Files:       files,
		Status:      j.Status,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

// IsCancelled reports whether Cancel has been called on this job.
func (j *Job) IsCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.cancelled
}

func (j *Job) withLock(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	fn()
}

// claimTerminal returns true exactly once per job, guarding the terminal
// side-effect sequence against a concurrent Cancel and an in-flight Run.
func (j *Job) claimTerminal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.terminalFired {
		return false
	}

	j.terminalFired = true

	return true
}

func (j *Job) filesWithStatus(s FileStatus) []*FileState {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []*FileState

	for _, f := range j.Files {
		if f.Status == s {
			out = append(out, f)
		}
	}

	return out
}

func countStatus(files []*FileState, s FileStatus) int {
	n := 0

	for _, f := range files {
		if f.Status == s {
			n++
		}
	}

	return n
}

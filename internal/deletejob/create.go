package deletejob

import (
	"os"
	"path/filepath"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
	"github.com/tonimelisma/modaq-upload/internal/keyderiver"
)

// candidate is one local file paired with the object key the cache
// believes it was uploaded to.
type candidate struct {
	path string
	key  string
	size int64
}

// create materializes a new delete job with a pre-assigned id (the scan
// that discovered candidates already announced this id in its
// scan_started event) from a set of already-resolved candidates. Paths
// that no longer exist on disk are silently skipped, matching the upload
// engine's create.
func (e *Engine) create(id string, candidates []candidate, bucket string) *Job {
	job := &Job{
		ID:        id,
		Bucket:    bucket,
		Status:    JobStatusPending,
		CreatedAt: e.now(),
	}

	for _, c := range candidates {
		if _, err := os.Stat(c.path); err != nil {
			continue
		}

		// The scan's stat size is what the cache lookup matched on; keep
		// it rather than re-reading, so verification compares against the
		// same value.
		job.Files = append(job.Files, &FileState{
			LocalPath: c.path,
			Filename:  keyderiver.NormalizeFilename(filepath.Base(c.path)),
			Size:      c.size,
			Key:       c.key,
			Status:    FileStatusPending,
		})
	}

	e.register(job)

	e.logInfo(auditlog.CategoryDelete, "delete_job_created", "delete job created", map[string]any{
		"job_id":      job.ID,
		"bucket":      bucket,
		"files_total": len(job.Files),
	})

	return job
}

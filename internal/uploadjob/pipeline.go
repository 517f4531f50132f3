package uploadjob

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
	"github.com/tonimelisma/modaq-upload/internal/keyderiver"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// AnalyzeAndUpload is the overlapped fast path: as
// each file's parse completes on the CPU pool, it is immediately
// duplicate-checked and, if eligible, handed to the I/O upload pool —
// overlapping parsing and uploading across the job's population instead
// of waiting for every file to finish analysis first.
func (e *Engine) AnalyzeAndUpload(ctx context.Context, job *Job, skipDuplicates bool) error {
	var alreadyTerminal bool

	job.withLock(func() {
		if job.Status.IsTerminal() {
			alreadyTerminal = true
			return
		}

		job.Status = JobStatusAnalyzing
		if job.StartedAt.IsZero() {
			job.StartedAt = e.now()
		}
	})

	if alreadyTerminal {
		return nil
	}

	pending := job.filesWithStatus(FileStatusPending)

	parseGroup, parseCtx := errgroup.WithContext(ctx)
	parseGroup.SetLimit(e.cpuWorkers)

	uploadGroup, uploadCtx := errgroup.WithContext(ctx)
	uploadGroup.SetLimit(e.ioWorkers)

	for _, f := range pending {
		f := f

		parseGroup.Go(func() error {
			e.pipelineOne(parseCtx, uploadCtx, job, f, skipDuplicates, uploadGroup)
			return nil
		})
	}

	_ = parseGroup.Wait()
	_ = uploadGroup.Wait()

	status := job.computeUploadStatus()

	job.withLock(func() {
		job.Status = status
		if status.IsTerminal() {
			job.CompletedAt = e.now()
		}
	})

	e.emitUploadProgress(job)

	if status.IsTerminal() && job.claimTerminal() {
		e.onJobTerminal(ctx, job)
	}

	return nil
}

// pipelineOne parses, dedup-checks, and (if eligible) submits a single
// file to the upload pool, never blocking the parse pool while the upload
// itself runs.
func (e *Engine) pipelineOne(parseCtx, uploadCtx context.Context, job *Job, f *FileState, skipDuplicates bool, uploadGroup *errgroup.Group) {
	if job.IsCancelled() {
		job.withLock(func() { f.Status = FileStatusCancelled })
		return
	}

	desc, err := keyderiver.DeriveAllowInvalid(f.LocalPath)
	if err != nil {
		job.withLock(func() {
			f.Status = FileStatusFailed
			f.ErrorMessage = err.Error()
		})

		return
	}

	job.withLock(func() {
		f.Timestamp = desc.Timestamp
		f.Key = keyderiver.DeriveKey(desc.Timestamp, f.Filename)
		f.Valid = keyderiver.IsValidTimestamp(desc.Timestamp)
	})

	dup, err := e.resolveDuplicate(parseCtx, job.Bucket, f)
	if err != nil {
		job.withLock(func() {
			f.Status = FileStatusFailed
			f.ErrorMessage = err.Error()
		})

		return
	}

	job.withLock(func() {
		f.Duplicate = dup
		f.Status = FileStatusReady
	})

	e.emitAnalysisProgress(job)

	if job.IsCancelled() {
		job.withLock(func() { f.Status = FileStatusCancelled })
		return
	}

	if skipDuplicates && dup {
		e.markSkipped(job, f, "")
		return
	}

	if !f.Valid {
		e.markSkipped(job, f, errInvalidTimestampSkip)
		return
	}

	uploadGroup.Go(func() error {
		e.uploadOne(uploadCtx, job, f)
		return nil
	})
}

// EmitAutoUploadStarting announces that a watched folder's
// auto-upload job is about to run its analyze-and-upload pipeline.
func (e *Engine) EmitAutoUploadStarting(job *Job, folder string) {
	e.hub.Publish(streamhub.NewAutoUploadStarting(job.ID, folder))
	e.logInfo(auditlog.CategoryUpload, "auto_upload_starting", "auto-upload job starting", map[string]any{
		"job_id": job.ID,
		"folder": folder,
	})
}

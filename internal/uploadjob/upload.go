package uploadjob

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/modaq-upload/internal/dedupcache"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// Upload drives every `ready` file in job through the upload phase:
// duplicates are skipped immediately when skipDuplicates is set, pre-1980
// files are always skipped, and everything else is submitted to the I/O
// pool. Partial per-file failures never fail
// the job; the job's own terminal status is derived once every file has
// reached a terminal state.
func (e *Engine) Upload(ctx context.Context, job *Job, skipDuplicates bool) error {
	var alreadyTerminal bool

	job.withLock(func() {
		if job.Status.IsTerminal() {
			alreadyTerminal = true
			return
		}

		job.Status = JobStatusUploading
		if job.StartedAt.IsZero() {
			job.StartedAt = e.now()
		}
	})

	if alreadyTerminal {
		return nil
	}

	ready := job.filesWithStatus(FileStatusReady)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.ioWorkers)

	for _, f := range ready {
		f := f

		if job.IsCancelled() {
			job.withLock(func() { f.Status = FileStatusCancelled })
			continue
		}

		if skipDuplicates && f.Duplicate {
			e.markSkipped(job, f, "")
			continue
		}

		if !f.Valid {
			e.markSkipped(job, f, errInvalidTimestampSkip)
			continue
		}

		g.Go(func() error {
			e.uploadOne(gctx, job, f)
			return nil
		})
	}

	_ = g.Wait()

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

// markSkipped transitions f straight to skipped, counting its bytes as
// "done" for job-level progress purposes.
func (e *Engine) markSkipped(job *Job, f *FileState, errMsg string) {
	job.withLock(func() {
		f.Status = FileStatusSkipped
		f.ErrorMessage = errMsg
		f.BytesUploaded = f.Size
		f.UploadCompletedAt = e.now()
	})
}

// uploadOne streams a single file to the store, updating byte progress
// under the job mutex on every callback.
func (e *Engine) uploadOne(ctx context.Context, job *Job, f *FileState) {
	job.withLock(func() {
		f.Status = FileStatusUploading
		f.UploadStartedAt = e.now()
	})

	body, err := os.Open(f.LocalPath)
	if err != nil {
		job.withLock(func() {
			f.Status = FileStatusFailed
			f.ErrorMessage = err.Error()
		})

		return
	}
	defer body.Close()

	progress := func(bytesUploaded, total int64) {
		job.withLock(func() { f.BytesUploaded = bytesUploaded })
		e.emitUploadProgress(job)
	}

	if err := e.gateway.Put(ctx, job.Bucket, f.Key, body, f.Size, progress); err != nil {
		job.withLock(func() {
			f.Status = FileStatusFailed
			f.ErrorMessage = err.Error()
		})

		return
	}

	if err := e.cache.Upsert(ctx, job.Bucket, dedupcache.UpsertEntry{
		Key: f.Key, Exists: true, Filename: f.Filename, Size: f.Size,
	}); err != nil {
		e.logger.Warn("upload: cache upsert after put failed", slog.String("key", f.Key), slog.String("error", err.Error()))
	}

	job.withLock(func() {
		f.Status = FileStatusCompleted
		f.BytesUploaded = f.Size
		f.UploadCompletedAt = e.now()
	})
}

// emitUploadProgress publishes the legacy tag-less job snapshot, compacted
// to job-level aggregates plus only the currently-analyzing/uploading file
// entries.
func (e *Engine) emitUploadProgress(job *Job) {
	snap := job.Snapshot()

	var (
		uploaded, failed, skipped int
		bytesUploaded, bytesTotal int64
		files                     []streamhub.FileProgress
	)

	for _, f := range snap.Files {
		bytesTotal += f.Size

		switch f.Status {
		case FileStatusCompleted:
			uploaded++
			bytesUploaded += f.BytesUploaded
		case FileStatusFailed:
			failed++
		case FileStatusSkipped:
			skipped++
			bytesUploaded += f.BytesUploaded
		case FileStatusAnalyzing:
			files = append(files, streamhub.FileProgress{Filename: f.Filename, Status: string(f.Status)})
		case FileStatusUploading:
			bytesUploaded += f.BytesUploaded
			files = append(files, streamhub.FileProgress{
				Filename: f.Filename, Status: string(f.Status),
				BytesUploaded: f.BytesUploaded, TotalBytes: f.Size,
			})
		}
	}

	e.hub.Publish(streamhub.NewUploadProgress(
		job.ID, string(snap.Status), len(snap.Files), uploaded, failed, skipped, bytesUploaded, bytesTotal, files,
	))
}

package uploadjob

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
	"github.com/tonimelisma/modaq-upload/internal/dedupcache"
	"github.com/tonimelisma/modaq-upload/internal/keyderiver"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// Analyze drives every `pending` file in job through parsing and
// dedup-checking, two sequential parallel passes: a CPU pool (true
// parallelism, sized max(1, NumCPU-1)) parses recordings off the main I/O
// path, then an independent I/O pool (default 4) resolves duplicate
// status against the cache/store. The job transitions
// analyzing -> ready|failed on return.
func (e *Engine) Analyze(ctx context.Context, job *Job) error {
	pending := job.filesWithStatus(FileStatusPending)

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

		for _, f := range pending {
			f.Status = FileStatusAnalyzing
		}
	})

	if alreadyTerminal {
		return nil
	}

	if len(pending) > 0 {
		if err := e.parsePhase(ctx, job, pending); err != nil {
			return err
		}

		parsed := filterFiles(pending, func(f *FileState) bool { return f.Status == FileStatusAnalyzing })
		if err := e.dedupCheckPhase(ctx, job, parsed); err != nil {
			return err
		}
	}

	status := job.computeAnalysisStatus()

	job.withLock(func() {
		job.Status = status
		if status.IsTerminal() {
			job.CompletedAt = e.now()
		}
	})

	snap := job.Snapshot()
	e.hub.Publish(streamhub.NewAnalysisComplete(job.ID, len(snap.Files), countStatus(snap.Files, FileStatusReady), countStatus(snap.Files, FileStatusFailed)))

	e.logInfo(auditlog.CategoryAnalysis, "analysis_complete", "analysis phase complete", map[string]any{
		"job_id": job.ID,
		"status": string(status),
	})

	// A job whose every file failed analysis never reaches the upload
	// phase, so its terminal side effects run here.
	if status.IsTerminal() && job.claimTerminal() {
		e.onJobTerminal(ctx, job)
	}

	return nil
}

// parsePhase runs the CPU pool: Derive each pending file's descriptor,
// populating Timestamp/Key/Valid, or marking it failed on ErrNoTimestamp.
func (e *Engine) parsePhase(ctx context.Context, job *Job, files []*FileState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cpuWorkers)

	for _, f := range files {
		f := f

		g.Go(func() error {
			if job.IsCancelled() {
				job.withLock(func() { f.Status = FileStatusCancelled })
				return nil
			}

			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			desc, err := keyderiver.DeriveAllowInvalid(f.LocalPath)

			job.withLock(func() {
				if err != nil {
					f.Status = FileStatusFailed
					f.ErrorMessage = err.Error()

					return
				}

				f.Timestamp = desc.Timestamp
				f.Key = keyderiver.DeriveKey(desc.Timestamp, f.Filename)
				f.Valid = keyderiver.IsValidTimestamp(desc.Timestamp)
			})

			e.emitAnalysisProgress(job)

			return nil
		})
	}

	return g.Wait()
}

// dedupCheckPhase runs the I/O pool: consult the cache, falling back to a
// store HEAD on miss, upserting the cache with whatever was learned.
// Transitions each file analyzing -> ready|failed.
func (e *Engine) dedupCheckPhase(ctx context.Context, job *Job, files []*FileState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.ioWorkers)

	for _, f := range files {
		f := f

		g.Go(func() error {
			if job.IsCancelled() {
				job.withLock(func() { f.Status = FileStatusCancelled })
				return nil
			}

			dup, err := e.resolveDuplicate(gctx, job.Bucket, f)

			job.withLock(func() {
				if err != nil {
					f.Status = FileStatusFailed
					f.ErrorMessage = err.Error()

					return
				}

				f.Duplicate = dup
				f.Status = FileStatusReady
			})

			e.emitAnalysisProgress(job)

			return nil
		})
	}

	return g.Wait()
}

// resolveDuplicate answers "does this key already exist?" for f, checking
// the cache first and falling back to a store HEAD on a cache miss,
// writing the result back to the cache either way.
func (e *Engine) resolveDuplicate(ctx context.Context, bucket string, f *FileState) (bool, error) {
	existence, err := e.cache.CheckPath(ctx, bucket, f.Key)
	if err != nil {
		return false, err
	}

	if existence != dedupcache.Unknown {
		return existence == dedupcache.Exists, nil
	}

	exists, err := e.gateway.Head(ctx, bucket, f.Key)
	if err != nil {
		return false, err
	}

	if upsertErr := e.cache.Upsert(ctx, bucket, dedupcache.UpsertEntry{
		Key: f.Key, Exists: exists, Filename: f.Filename, Size: f.Size,
	}); upsertErr != nil {
		return false, upsertErr
	}

	return exists, nil
}

func (e *Engine) emitAnalysisProgress(job *Job) {
	snap := job.Snapshot()

	analyzed := 0
	var files []streamhub.FileProgress

	for _, f := range snap.Files {
		if f.Status == FileStatusReady || f.Status == FileStatusFailed || f.Status.IsTerminal() {
			analyzed++
		}

		if f.Status == FileStatusAnalyzing {
			files = append(files, streamhub.FileProgress{Filename: f.Filename, Status: string(f.Status)})
		}
	}

	e.hub.Publish(streamhub.NewAnalysisProgress(job.ID, analyzed, len(snap.Files), files))
}

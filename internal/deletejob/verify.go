package deletejob

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// verifyPhase HEADs the expected object for
// every hashed file and compare against the local MD5/size, on a bounded
// worker pool.
func (e *Engine) verifyPhase(ctx context.Context, job *Job, files []*FileState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.verifyWorkers)

	for _, f := range files {
		f := f

		g.Go(func() error {
			if job.IsCancelled() {
				job.withLock(func() { f.Status = FileStatusCancelled })
				return nil
			}

			level, mismatch, err := e.verifyOne(gctx, job.Bucket, f)

			job.withLock(func() {
				switch {
				case err != nil:
					f.Status = FileStatusFailed
					f.ErrorMessage = err.Error()
				case mismatch:
					f.Status = FileStatusMismatch
				default:
					f.Status = FileStatusVerified
					f.VerifiedLevel = level
					f.VerifiedAt = e.now()
				}
			})

			return nil
		})
	}

	return g.Wait()
}

// verifyOne runs the primary/secondary check: size match is primary; a
// multipart ETag (contains "-")
// verifies on size alone, otherwise the lowercase ETag must equal the
// local MD5.
func (e *Engine) verifyOne(ctx context.Context, bucket string, f *FileState) (VerificationLevel, bool, error) {
	meta, err := e.gateway.HeadMetadata(ctx, bucket, f.Key)
	if err != nil {
		return VerificationNone, false, err
	}

	if meta.Size != f.Size {
		return VerificationNone, true, nil
	}

	if strings.Contains(meta.ETag, "-") {
		return VerificationSize, false, nil
	}

	if !strings.EqualFold(meta.ETag, f.LocalMD5) {
		return VerificationNone, true, nil
	}

	return VerificationMD5Size, false, nil
}

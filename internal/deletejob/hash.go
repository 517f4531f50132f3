package deletejob

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// hashChunkSize is the buffered read size for the streaming MD5 pass.
const hashChunkSize = 8 * 1024 * 1024

// hashPhase computes a streaming MD5 of every pending
// file's local content, on a bounded worker pool. I/O errors mark the
// file failed; the job continues with the rest.
func (e *Engine) hashPhase(ctx context.Context, job *Job, files []*FileState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.hashWorkers)

	for _, f := range files {
		f := f

		g.Go(func() error {
			if job.IsCancelled() {
				job.withLock(func() { f.Status = FileStatusCancelled })
				return nil
			}

			job.withLock(func() {
				f.Status = FileStatusVerifying
				f.HashStartedAt = e.now()
			})

			sum, err := hashFile(gctx, f.LocalPath)

			job.withLock(func() {
				if err != nil {
					f.Status = FileStatusFailed
					f.ErrorMessage = err.Error()

					return
				}

				f.LocalMD5 = sum
				f.HashCompletedAt = e.now()
			})

			return nil
		})
	}

	return g.Wait()
}

// hashFile computes path's MD5 in hashChunkSize-buffered reads.
func hashFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, hashChunkSize)

	if _, err := io.CopyBuffer(h, &ctxReader{ctx: ctx, r: f}, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ctxReader aborts a read loop as soon as ctx is cancelled, so a long
// local hash pass still responds to Cancel/shutdown promptly.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}

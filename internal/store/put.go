package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Put streams body to (bucket, key) via a single PutObject call. A
// recording is uploaded whole; there is no resumable-session lifecycle to
// encapsulate here.
func (g *S3Gateway) Put(
	ctx context.Context, bucket, key string, body io.ReadSeeker, size int64, progress ProgressFunc,
) error {
	reader := body
	if progress != nil {
		reader = &progressReadSeeker{ReadSeeker: body, total: size, onProgress: progress}
	}

	g.logger.Info("uploading object",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Int64("size", size),
	)

	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("store: put %s/%s: %w", bucket, key, classifyError(err))
	}

	if progress != nil {
		progress(size, size)
	}

	return nil
}

// progressReadSeeker wraps an io.ReadSeeker, invoking onProgress with a
// monotonically non-decreasing cumulative byte count after every Read.
// Seek moves the read position back; the reported count never goes
// backwards and never exceeds total.
type progressReadSeeker struct {
	io.ReadSeeker
	total      int64
	read       int64
	reported   int64
	onProgress ProgressFunc
}

func (p *progressReadSeeker) Read(buf []byte) (int, error) {
	n, err := p.ReadSeeker.Read(buf)
	if n > 0 {
		p.read += int64(n)
		if p.read > p.reported {
			p.reported = p.read
			if p.reported > p.total {
				p.reported = p.total
			}
		}

		p.onProgress(p.reported, p.total)
	}

	return n, err
}

func (p *progressReadSeeker) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.ReadSeeker.Seek(offset, whence)
	if err == nil {
		p.read = pos
	}

	return pos, err
}

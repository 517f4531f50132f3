package uploadjob

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
	"github.com/tonimelisma/modaq-upload/internal/keyderiver"
)

// jobCreateConfig holds Create's optional parameters.
type jobCreateConfig struct {
	tempDir    string
	autoUpload bool
	cacheOnly  bool
}

// JobCreateOption configures Create.
type JobCreateOption func(*jobCreateConfig)

// WithTempDir records a temp directory the engine reclaims when the job
// reaches a terminal status.
func WithTempDir(dir string) JobCreateOption {
	return func(c *jobCreateConfig) { c.tempDir = dir }
}

// WithAutoUpload marks the job for immediate analyze-and-upload pipelining
// once created.
func WithAutoUpload() JobCreateOption {
	return func(c *jobCreateConfig) { c.autoUpload = true }
}

// WithCacheOnlyPreFilter skips the batched store HEAD phase during
// pre-filtering, relying solely on the local cache.
func WithCacheOnlyPreFilter() JobCreateOption {
	return func(c *jobCreateConfig) { c.cacheOnly = true }
}

// Create materializes a new upload job from paths, running the pre-filter
// pass so already-uploaded recordings start life as `skipped` rather than
// entering analysis; the pre-filter statistics land on the Job. Paths
// that don't exist on disk are silently skipped.
func (e *Engine) Create(ctx context.Context, paths []string, bucket string, opts ...JobCreateOption) (*Job, error) {
	cfg := jobCreateConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	sizes := make(map[string]int64, len(paths))

	var existing []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			e.logger.Warn("upload: path does not exist, skipping", slog.String("path", path))
			continue
		}

		existing = append(existing, path)
		sizes[path] = info.Size()
	}

	toParse, stats, err := e.PreFilter(ctx, existing, bucket, cfg.cacheOnly)
	if err != nil {
		return nil, err
	}

	toParseSet := make(map[string]struct{}, len(toParse))
	for _, p := range toParse {
		toParseSet[p] = struct{}{}
	}

	job := &Job{
		ID:             e.newID(),
		Bucket:         bucket,
		Status:         JobStatusPending,
		CreatedAt:      e.now(),
		TempDir:        cfg.tempDir,
		AutoUpload:     cfg.autoUpload,
		PreFilterStats: stats,
	}

	for _, path := range existing {
		fs := &FileState{
			Filename:  keyderiver.NormalizeFilename(filepath.Base(path)),
			LocalPath: path,
			Size:      sizes[path],
		}

		if _, needsParse := toParseSet[path]; needsParse {
			fs.Status = FileStatusPending
		} else {
			fs.Status = FileStatusSkipped
			fs.Duplicate = true
			fs.BytesUploaded = fs.Size
			fs.UploadCompletedAt = e.now()
		}

		job.Files = append(job.Files, fs)
	}

	e.register(job)

	e.logInfo(auditlog.CategoryUpload, "upload_job_created", "upload job created", map[string]any{
		"job_id":      job.ID,
		"bucket":      bucket,
		"files_total": len(job.Files),
		"cache_skip":  stats.CacheSkipped,
		"to_parse":    stats.ToParse,
	})

	return job, nil
}

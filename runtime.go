package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
	"github.com/tonimelisma/modaq-upload/internal/config"
	"github.com/tonimelisma/modaq-upload/internal/dedupcache"
	"github.com/tonimelisma/modaq-upload/internal/deletejob"
	"github.com/tonimelisma/modaq-upload/internal/store"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
	"github.com/tonimelisma/modaq-upload/internal/uploadjob"
)

// Runtime is the dependency-injection root: config -> cache -> gateway ->
// engines -> hub -> audit log, wired once per CLI invocation and handed to
// every command's RunE via CLIContext.
type Runtime struct {
	Cache   *dedupcache.Cache
	Gateway store.Gateway
	Hub     *streamhub.Hub
	Journal *auditlog.Journal
	Upload  *uploadjob.Engine
	Delete  *deletejob.Engine
	LogDir  string
	Bucket  string
}

// buildRuntime opens the dedup cache, constructs the S3 gateway from the
// resolved config's profile/region, and wires both job engines to a
// shared event hub and audit journal. The upload/delete engines' terminal
// hooks trigger a best-effort log-ship reconciliation; failures there are
// logged, never surfaced.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	logDir := cfg.LogDirectory
	if logDir == "" {
		logDir = config.DefaultLogDirectory()
	}

	cachePath := config.DefaultCachePath()

	cache, err := dedupcache.Open(ctx, cachePath, logger)
	if err != nil {
		return nil, fmt.Errorf("runtime: opening dedup cache: %w", err)
	}

	gateway, err := store.NewS3Gateway(ctx, cfg.AWSProfile, cfg.AWSRegion, logger)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("runtime: constructing object store gateway: %w", err)
	}

	hub := streamhub.New()
	journal := auditlog.NewJournal(logDir)

	rt := &Runtime{
		Cache:   cache,
		Gateway: gateway,
		Hub:     hub,
		Journal: journal,
		LogDir:  logDir,
		Bucket:  cfg.S3Bucket,
	}

	onUploadTerminal := func(_ context.Context, _ *uploadjob.Job) {
		rt.shipLogs(logger)
	}

	onDeleteTerminal := func(_ context.Context, _ *deletejob.Job) {
		rt.shipLogs(logger)
	}

	rt.Upload = uploadjob.New(cache, gateway, hub, journal, logDir, logger, uploadjob.WithOnTerminal(onUploadTerminal))
	rt.Delete = deletejob.New(cache, gateway, hub, journal, logger, deletejob.WithOnTerminal(onDeleteTerminal))

	return rt, nil
}

// shipLogs runs the log-ship reconciliation in the background —
// job-terminal hooks must never block on bookkeeping.
func (r *Runtime) shipLogs(logger *slog.Logger) {
	go func() {
		result, err := auditlog.Reconcile(context.Background(), r.LogDir, r.Bucket, r.Gateway, r.Cache)
		if err != nil {
			logger.Warn("log ship failed", slog.String("error", err.Error()))
			return
		}

		logger.Debug("log ship complete",
			slog.Int("shipped", result.Shipped),
			slog.Int("skipped", result.Skipped),
		)
	}()
}

// Close releases the runtime's held resources (currently just the dedup
// cache's SQLite connection pool).
func (r *Runtime) Close() error {
	return r.Cache.Close()
}

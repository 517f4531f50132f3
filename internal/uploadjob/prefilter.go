package uploadjob

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/modaq-upload/internal/dedupcache"
	"github.com/tonimelisma/modaq-upload/internal/keyderiver"
)

// pendingHead is a path whose filename-regex timestamp resolved to a key,
// but whose path-cache lookup came back Unknown — remembered for the
// batched store HEAD phase.
type pendingHead struct {
	path     string
	filename string
	size     int64
	key      string
}

// PreFilter runs the fast pre-parse pass: it
// excludes paths the cache (or, barring cacheOnly, a batched store HEAD)
// already knows are uploaded, and returns the rest as paths still needing
// full content parsing.
func (e *Engine) PreFilter(ctx context.Context, paths []string, bucket string, cacheOnly bool) ([]string, PreFilterStats, error) {
	stats := PreFilterStats{Total: len(paths)}

	var (
		toParse []string
		pending []pendingHead
	)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			e.logger.Warn("pre_filter: stat failed, skipping", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}

		filename := keyderiver.NormalizeFilename(filepath.Base(path))
		size := info.Size()

		alreadyUploaded, err := e.cache.CheckByFilenameSize(ctx, bucket, filename, size)
		if err != nil {
			return nil, PreFilterStats{}, err
		}

		if alreadyUploaded {
			stats.CacheSkipped++
			continue
		}

		t, ok := keyderiver.ExtractFromFilename(filename)
		if !ok {
			stats.NoTimestamp++
			stats.ToParse++
			toParse = append(toParse, path)

			continue
		}

		key := keyderiver.DeriveKey(t, filename)

		existence, err := e.cache.CheckPath(ctx, bucket, key)
		if err != nil {
			return nil, PreFilterStats{}, err
		}

		switch existence {
		case dedupcache.Exists:
			stats.CacheHits++
		case dedupcache.NotExists:
			stats.CacheHits++
			stats.ToParse++
			toParse = append(toParse, path)
		default: // Unknown
			pending = append(pending, pendingHead{path: path, filename: filename, size: size, key: key})
		}
	}

	if cacheOnly {
		for _, p := range pending {
			stats.ToParse++
			toParse = append(toParse, p.path)
		}

		return toParse, stats, nil
	}

	resolved, storeHits, err := e.batchHead(ctx, bucket, pending)
	if err != nil {
		return nil, PreFilterStats{}, err
	}

	stats.StoreHits += storeHits
	stats.ToParse += len(resolved)
	toParse = append(toParse, resolved...)

	return toParse, stats, nil
}

// batchHead issues parallel HEAD requests (on the IO pool) for every
// remembered pending path, writes each outcome back to the cache, and
// returns the subset that should still be parsed (store said not-exists)
// plus a count of confirmed-existing hits.
func (e *Engine) batchHead(ctx context.Context, bucket string, pending []pendingHead) ([]string, int, error) {
	if len(pending) == 0 {
		return nil, 0, nil
	}

	var (
		mu        sync.Mutex
		toParse   []string
		storeHits int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.ioWorkers)

	for _, p := range pending {
		p := p

		g.Go(func() error {
			exists, err := e.gateway.Head(gctx, bucket, p.key)
			if err != nil {
				e.logger.Warn("pre_filter: store HEAD failed",
					slog.String("key", p.key), slog.String("error", err.Error()))

				mu.Lock()
				toParse = append(toParse, p.path)
				mu.Unlock()

				return nil
			}

			if upsertErr := e.cache.Upsert(ctx, bucket, dedupcache.UpsertEntry{
				Key: p.key, Exists: exists, Filename: p.filename, Size: p.size,
			}); upsertErr != nil {
				return upsertErr
			}

			mu.Lock()
			defer mu.Unlock()

			if exists {
				storeHits++
			} else {
				toParse = append(toParse, p.path)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return toParse, storeHits, nil
}

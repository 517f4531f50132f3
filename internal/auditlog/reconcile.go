package auditlog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tonimelisma/modaq-upload/internal/dedupcache"
	"github.com/tonimelisma/modaq-upload/internal/store"
)

// shipStateStore is the dedup-cache-backed sync-state ledger the
// reconciliation job consults and updates. *dedupcache.Cache satisfies
// this; declared as an interface so tests can substitute a fake without
// a real SQLite database.
type shipStateStore interface {
	GetLogShipState(ctx context.Context, relativePath string) (dedupcache.LogShipState, bool, error)
	PutLogShipState(ctx context.Context, relativePath string, size, shippedAt int64) error
}

// ShipResult summarizes one reconciliation pass.
type ShipResult struct {
	Shipped int
	Skipped int
}

// Reconcile walks logDirectory's json/ and csv/ trees, ships any file
// whose size differs from the locally recorded sync-state to the object
// store under logs/<relative path>, and updates sync-state atomically
// per file.
func Reconcile(ctx context.Context, logDirectory, bucket string, gw store.Gateway, state shipStateStore) (ShipResult, error) {
	var result ShipResult

	for _, sub := range []string{"json", "csv"} {
		root := filepath.Join(logDirectory, sub)

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if os.IsNotExist(walkErr) {
					return nil
				}

				return walkErr
			}

			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(logDirectory, path)
			if err != nil {
				return fmt.Errorf("auditlog: relative path of %s: %w", path, err)
			}
			rel = filepath.ToSlash(rel)

			shipped, err := shipIfChanged(ctx, path, rel, bucket, gw, state)
			if err != nil {
				return err
			}

			if shipped {
				result.Shipped++
			} else {
				result.Skipped++
			}

			return nil
		})
		if err != nil {
			return result, fmt.Errorf("auditlog: reconcile %s: %w", sub, err)
		}
	}

	return result, nil
}

func shipIfChanged(ctx context.Context, path, rel, bucket string, gw store.Gateway, state shipStateStore) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("auditlog: stat %s: %w", path, err)
	}

	prior, ok, err := state.GetLogShipState(ctx, rel)
	if err != nil {
		return false, err
	}

	if ok && prior.LocalSize == info.Size() {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("auditlog: open %s: %w", path, err)
	}
	defer f.Close()

	key := "logs/" + strings.TrimPrefix(rel, "/")

	if err := gw.Put(ctx, bucket, key, f, info.Size(), nil); err != nil {
		return false, fmt.Errorf("auditlog: ship %s: %w", rel, err)
	}

	if err := state.PutLogShipState(ctx, rel, info.Size(), time.Now().Unix()); err != nil {
		return false, err
	}

	return true, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/modaq-upload/internal/dedupcache"
)

const cacheListMax = 50000

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the local dedup cache",
	}

	cmd.AddCommand(newCacheReconcileCmd())
	cmd.AddCommand(newCacheInvalidateCmd())

	return cmd
}

func newCacheReconcileCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Full-sync the dedup cache against the object store's actual contents",
		Long: `Lists every object under prefix in the configured bucket and applies the
listing to the cache: every listed key is marked present,
and every previously-cached key under the same prefix no longer listed
is tombstoned. Use after out-of-band changes to the bucket.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())
			ctx := cmd.Context()

			listing, err := cc.Runtime.Gateway.List(ctx, cc.Cfg.S3Bucket, prefix, "", cacheListMax)
			if err != nil {
				return fmt.Errorf("listing %s/%s: %w", cc.Cfg.S3Bucket, prefix, err)
			}

			objects := make([]dedupcache.StoreObject, len(listing.Objects))
			for i, obj := range listing.Objects {
				objects[i] = dedupcache.StoreObject{
					Key:      obj.Key,
					Filename: filenameFromKey(obj.Key),
					Size:     obj.Size,
				}
			}

			result, err := cc.Runtime.Cache.Reconcile(ctx, cc.Cfg.S3Bucket, prefix, objects)
			if err != nil {
				return fmt.Errorf("reconciling cache: %w", err)
			}

			cc.Statusf("reconcile complete: %d in store, %d tombstoned\n", result.FilesInStore, result.FilesRemoved)

			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "only reconcile keys under this prefix")

	return cmd
}

func newCacheInvalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Drop every cached entry for the configured bucket",
		Long: `Forces every subsequent dedup check to fall back to a live store lookup
. Use when the cache is suspected to have drifted and a
full "cache reconcile" is not immediately practical.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			n, err := cc.Runtime.Cache.Invalidate(cmd.Context(), cc.Cfg.S3Bucket)
			if err != nil {
				return fmt.Errorf("invalidating cache: %w", err)
			}

			cc.Statusf("invalidated %d cached entries\n", n)

			return nil
		},
	}
}

// filenameFromKey extracts the trailing path segment of an object key, the
// same shape dedupcache stores as its filename column.
func filenameFromKey(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}

	return key
}

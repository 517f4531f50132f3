package deletejob

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tonimelisma/modaq-upload/internal/keyderiver"
	"github.com/tonimelisma/modaq-upload/internal/streamhub"
)

// Scan walks root recursively
// for `.mcap` files and, for each, looks up the cache by filename+size,
// including only the ones the cache knows were uploaded (using the cached
// key as the file's expected object key). The result is a delete job ready
// for Phase 1.
func (e *Engine) Scan(ctx context.Context, root, bucket string) (*Job, error) {
	id := e.newID()

	e.hub.Publish(streamhub.NewScanStarted(id, root))

	var candidates []candidate

	perFolder := make(map[string]int)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !strings.EqualFold(filepath.Ext(path), ".mcap") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		filename := keyderiver.NormalizeFilename(filepath.Base(path))

		key, found, lookupErr := e.cache.FindKeyByFilenameSize(ctx, bucket, filename, info.Size())
		if lookupErr != nil {
			return lookupErr
		}

		if !found {
			return nil
		}

		candidates = append(candidates, candidate{path: path, key: key, size: info.Size()})
		perFolder[filepath.Dir(path)]++

		return nil
	})
	if err != nil {
		return nil, err
	}

	folders := make([]string, 0, len(perFolder))
	for folder := range perFolder {
		folders = append(folders, folder)
	}

	sort.Strings(folders)

	for _, folder := range folders {
		e.hub.Publish(streamhub.NewScanFolderComplete(id, folder, perFolder[folder]))
	}

	job := e.create(id, candidates, bucket)

	e.hub.Publish(streamhub.NewScanComplete(id, len(candidates)))

	return job, nil
}

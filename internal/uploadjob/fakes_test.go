package uploadjob

import (
	"context"
	"io"
	"sync"

	"github.com/tonimelisma/modaq-upload/internal/dedupcache"
	"github.com/tonimelisma/modaq-upload/internal/store"
)

// fakeCache is an in-memory stand-in for dedupcache.Cache, keyed exactly
// as the real table is (bucket, key) and (bucket, filename, size).
type fakeCache struct {
	mu     sync.Mutex
	byKey  map[string]bool // bucket+"\x00"+key -> exists
	byName map[string]bool // bucket+"\x00"+filename+"\x00"+size -> true means already uploaded
	putErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{byKey: make(map[string]bool), byName: make(map[string]bool)}
}

func (c *fakeCache) CheckPath(_ context.Context, bucket, key string) (dedupcache.Existence, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exists, ok := c.byKey[bucket+"\x00"+key]
	if !ok {
		return dedupcache.Unknown, nil
	}

	if exists {
		return dedupcache.Exists, nil
	}

	return dedupcache.NotExists, nil
}

func (c *fakeCache) CheckByFilenameSize(_ context.Context, bucket, filename string, size int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.byName[nameKey(bucket, filename, size)], nil
}

func (c *fakeCache) Upsert(_ context.Context, bucket string, e dedupcache.UpsertEntry) error {
	if c.putErr != nil {
		return c.putErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.byKey[bucket+"\x00"+e.Key] = e.Exists
	if e.Exists {
		c.byName[nameKey(bucket, e.Filename, e.Size)] = true
	}

	return nil
}

func (c *fakeCache) UpsertAll(ctx context.Context, bucket string, entries []dedupcache.UpsertEntry) error {
	for _, e := range entries {
		if err := c.Upsert(ctx, bucket, e); err != nil {
			return err
		}
	}

	return nil
}

func (c *fakeCache) markUploaded(bucket, key, filename string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byKey[bucket+"\x00"+key] = true
	c.byName[nameKey(bucket, filename, size)] = true
}

func nameKey(bucket, filename string, size int64) string {
	return bucket + "\x00" + filename + "\x00" + itoa(size)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}

// fakeGateway is an in-memory store.Gateway: Head answers from a static
// existence set, Put always succeeds and records what was uploaded unless
// putErr is set for that key.
type fakeGateway struct {
	store.Gateway

	mu      sync.Mutex
	exists  map[string]bool
	puts    map[string][]byte
	putErrs map[string]error
	headErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{exists: make(map[string]bool), puts: make(map[string][]byte), putErrs: make(map[string]error)}
}

func (g *fakeGateway) Head(_ context.Context, _, key string) (bool, error) {
	if g.headErr != nil {
		return false, g.headErr
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.exists[key], nil
}

func (g *fakeGateway) Put(_ context.Context, _, key string, body io.ReadSeeker, size int64, progress store.ProgressFunc) error {
	g.mu.Lock()
	err := g.putErrs[key]
	g.mu.Unlock()

	if err != nil {
		return err
	}

	data, readErr := io.ReadAll(body)
	if readErr != nil {
		return readErr
	}

	if progress != nil {
		progress(size, size)
	}

	g.mu.Lock()
	g.puts[key] = data
	g.exists[key] = true
	g.mu.Unlock()

	return nil
}

func (g *fakeGateway) setExists(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exists[key] = true
}

func (g *fakeGateway) setPutErr(key string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.putErrs[key] = err
}

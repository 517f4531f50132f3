package deletejob

import (
	"context"
	"io"
	"sync"

	"github.com/tonimelisma/modaq-upload/internal/store"
)

// fakeCache is an in-memory stand-in for the dedupcache lookup Scan needs.
type fakeCache struct {
	mu      sync.Mutex
	byName  map[string]string // bucket+"\x00"+filename+"\x00"+size -> key
}

func newFakeCache() *fakeCache {
	return &fakeCache{byName: make(map[string]string)}
}

func (c *fakeCache) FindKeyByFilenameSize(_ context.Context, bucket, filename string, size int64) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, ok := c.byName[nameKey(bucket, filename, size)]
	return key, ok, nil
}

func (c *fakeCache) put(bucket, filename string, size int64, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byName[nameKey(bucket, filename, size)] = key
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

// fakeGateway is an in-memory store.Gateway exercising only HeadMetadata,
// which is all the verify phase needs.
type fakeGateway struct {
	store.Gateway

	mu       sync.Mutex
	objects  map[string]store.ObjectMetadata
	headErrs map[string]error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{objects: make(map[string]store.ObjectMetadata), headErrs: make(map[string]error)}
}

func (g *fakeGateway) HeadMetadata(_ context.Context, _, key string) (store.ObjectMetadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err, ok := g.headErrs[key]; ok {
		return store.ObjectMetadata{}, err
	}

	meta, ok := g.objects[key]
	if !ok {
		return store.ObjectMetadata{}, io.EOF
	}

	return meta, nil
}

func (g *fakeGateway) putObject(key string, meta store.ObjectMetadata) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects[key] = meta
}

func (g *fakeGateway) setHeadErr(key string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.headErrs[key] = err
}

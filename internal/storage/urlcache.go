package storage

import (
	"context"
	"sync"
)

// URLCache remembers resolved download URLs by path for the life of the
// process. Entries are never invalidated: replacement uploads always get a
// fresh path, so a cached URL only goes stale for in-place overwrites.
type URLCache struct {
	mu   sync.RWMutex
	urls map[string]string
}

func NewURLCache() *URLCache {
	return &URLCache{urls: make(map[string]string)}
}

func (c *URLCache) Get(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.urls[path]
	return u, ok
}

func (c *URLCache) Put(path, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.urls[path]; !ok {
		c.urls[path] = url
	}
}

func (c *URLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.urls)
}

// Resolver turns storage paths into download URLs through the cache.
type Resolver struct {
	blobs BlobStore
	cache *URLCache
}

func NewResolver(blobs BlobStore, cache *URLCache) *Resolver {
	return &Resolver{blobs: blobs, cache: cache}
}

func (r *Resolver) URL(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if u, ok := r.cache.Get(path); ok {
		return u, nil
	}
	u, err := r.blobs.URL(ctx, path)
	if err != nil {
		return "", err
	}
	r.cache.Put(path, u)
	return u, nil
}

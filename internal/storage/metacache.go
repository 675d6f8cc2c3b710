package storage

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultMetadataTTL = 30 * time.Second

// metadataCacheLimit bounds the cache before expired entries are swept.
const metadataCacheLimit = 4096

type metadataEntry struct {
	meta      ObjectMetadata
	expiresAt time.Time
}

// MetadataCache wraps a Gateway with a small TTL cache for object metadata.
// A playback session issues many chunk requests for one object in quick
// succession; caching the head lookup and collapsing concurrent misses with
// singleflight keeps that down to one backend round trip per TTL.
type MetadataCache struct {
	next Gateway
	ttl  time.Duration
	now  func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]metadataEntry
}

// NewMetadataCache wraps next with a metadata cache. A non-positive ttl falls
// back to the default.
func NewMetadataCache(next Gateway, ttl time.Duration) *MetadataCache {
	if ttl <= 0 {
		ttl = defaultMetadataTTL
	}
	return &MetadataCache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]metadataEntry),
	}
}

func (c *MetadataCache) GetMetadata(ctx context.Context, key string) (ObjectMetadata, error) {
	if meta, ok := c.lookup(key); ok {
		return meta, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		if meta, ok := c.lookup(key); ok {
			return meta, nil
		}
		meta, err := c.next.GetMetadata(ctx, key)
		if err != nil {
			return ObjectMetadata{}, err
		}
		c.store(key, meta)
		return meta, nil
	})
	if err != nil {
		return ObjectMetadata{}, err
	}
	return result.(ObjectMetadata), nil
}

// GetRange passes through; byte ranges are never cached here.
func (c *MetadataCache) GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	return c.next.GetRange(ctx, key, start, end)
}

func (c *MetadataCache) lookup(key string) (ObjectMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return ObjectMetadata{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return ObjectMetadata{}, false
	}
	return entry.meta, true
}

func (c *MetadataCache) store(key string, meta ObjectMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= metadataCacheLimit {
		c.sweepLocked()
	}
	c.entries[key] = metadataEntry{meta: meta, expiresAt: c.now().Add(c.ttl)}
}

func (c *MetadataCache) sweepLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

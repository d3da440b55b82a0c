package embedding

import (
	"context"
	"time"

	"github.com/riskibarqy/match-predictor/internal/platform/cache"
)

// MemoryCache keeps vectors in process memory.
type MemoryCache struct {
	store *cache.Store[[]float32]
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{store: cache.NewStore[[]float32](ttl, maxEntries)}
}

func (c *MemoryCache) Lookup(ctx context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	for _, key := range keys {
		if vec, ok := c.store.Get(ctx, key); ok {
			out[key] = vec
		}
	}
	return out, nil
}

func (c *MemoryCache) Store(ctx context.Context, vectors map[string][]float32) error {
	for key, vec := range vectors {
		c.store.Set(ctx, key, append([]float32(nil), vec...))
	}
	return nil
}

func (c *MemoryCache) Len() int {
	return c.store.Len()
}

// Layered reads through each cache in order and backfills faster layers.
type Layered []Cache

func (l Layered) Lookup(ctx context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	remaining := keys
	var firstErr error
	for depth, layer := range l {
		if len(remaining) == 0 {
			break
		}
		hits, err := layer.Lookup(ctx, remaining)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if depth > 0 && len(hits) > 0 {
			for _, faster := range l[:depth] {
				_ = faster.Store(ctx, hits)
			}
		}
		next := remaining[:0:0]
		for _, key := range remaining {
			if vec, ok := hits[key]; ok {
				out[key] = vec
				continue
			}
			next = append(next, key)
		}
		remaining = next
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (l Layered) Store(ctx context.Context, vectors map[string][]float32) error {
	var firstErr error
	for _, layer := range l {
		if err := layer.Store(ctx, vectors); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package embedding

import (
	"container/list"
	"context"
	"sync"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed by input text.
// Repeated queries (and re-ingests of unchanged documents) skip the
// provider round trip.
type CachedEmbedder struct {
	inner    Embedder
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewCachedEmbedder wraps inner with an LRU cache of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	if capacity <= 0 {
		capacity = 1024
	}
	return &CachedEmbedder{
		inner:    inner,
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Embed returns the cached embedding for text if present, otherwise
// delegates to the wrapped embedder and caches the result.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.set(text, v)
	return v, nil
}

// EmbedBatch embeds texts, reusing cached entries and delegating the rest
// to the wrapped embedder in a single batch. Order is preserved. Zero
// vectors returned by the provider are not cached, so a transient failure
// does not poison future lookups.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.get(text); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fresh, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, v := range fresh {
		out[missingIdx[j]] = v
		if !IsZeroVector(v) {
			c.set(missing[j], v)
		}
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// Available delegates to the wrapped embedder.
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close closes the wrapped embedder.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }

// Stats returns cache hit and miss counts.
func (c *CachedEmbedder) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *CachedEmbedder) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		c.hits++
		return elem.Value.(*cacheEntry).value, true
	}
	c.misses++
	return nil, false
}

func (c *CachedEmbedder) set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache is an LRU of embeddings keyed by input text. A capacity <= 0 disables it.
// Vectors are copied on the way in and out, so callers may normalize or modify them freely.
type EmbeddingCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	hits     uint64
	misses   uint64
	mu       sync.Mutex
}

type cacheEntry struct {
	text   string
	vector []float32
}

// NewEmbeddingCache creates a cache holding at most capacity embeddings.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns a copy of the embedding cached for text and marks it most recently used.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return cloneVector(elem.Value.(*cacheEntry).vector), true
}

// Set caches a copy of vector for text, evicting the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[text]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).vector = cloneVector(vector)
		return
	}
	c.entries[text] = c.order.PushFront(&cacheEntry{text: text, vector: cloneVector(vector)})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).text)
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counts since the cache was created.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

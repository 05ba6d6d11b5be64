// # internal/engine/parser/cache.go
package parser

import (
	"container/list"
	"sync"

	"pyrefactor/internal/shared/observability"
)

// LRUCache is a thread-safe, capacity-bounded least-recently-used cache.
// Watch mode keeps Pass 1 results in one keyed by CacheKey so unchanged
// files are not re-parsed between runs.
type LRUCache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = most recently used
	hits     uint64
	misses   uint64
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRUCache creates a cache; capacities <= 0 are normalised to 1.
func NewLRUCache[K comparable, V any](capacity int) *LRUCache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry[K, V]).value, true
}

func (c *LRUCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*lruEntry[K, V]).value = value
		return
	}
	if c.order.Len() >= c.capacity {
		if back := c.order.Back(); back != nil {
			c.order.Remove(back)
			delete(c.items, back.Value.(*lruEntry[K, V]).key)
		}
	}
	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
}

func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counts since creation.
func (c *LRUCache[K, V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// CacheKey identifies a Pass 1 result by path and content hash.
type CacheKey struct {
	Path string
	Hash string
}

// CachingAnalyzer wraps a LocalAnalyzer with an LRU of successful results.
// Failures are not cached so a fixed file is re-parsed.
type CachingAnalyzer struct {
	inner *LocalAnalyzer
	cache *LRUCache[CacheKey, *File]
}

func NewCachingAnalyzer(inner *LocalAnalyzer, entries int) *CachingAnalyzer {
	return &CachingAnalyzer{inner: inner, cache: NewLRUCache[CacheKey, *File](entries)}
}

func (a *CachingAnalyzer) Analyze(path string, content []byte) (*File, error) {
	key := CacheKey{Path: CanonicalPath(path), Hash: ContentHash(content)}
	if f, ok := a.cache.Get(key); ok {
		observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return f, nil
	}
	observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
	f, err := a.inner.Analyze(path, content)
	if err != nil {
		return nil, err
	}
	a.cache.Put(key, f)
	return f, nil
}

func (a *CachingAnalyzer) Stats() (hits, misses uint64) {
	return a.cache.Stats()
}

package postgres

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/power-outage-etl/internal/domain"
	"github.com/couchcryptid/power-outage-etl/internal/observability"
)

// ProviderLookup resolves a provider name to its id.
type ProviderLookup interface {
	ProviderID(ctx context.Context, name domain.ProviderName) (int64, bool, error)
}

// CachedProviders wraps a ProviderLookup with an in-memory LRU cache.
// Only found providers are cached so a provider seeded mid-run is picked up.
type CachedProviders struct {
	inner   ProviderLookup
	cache   *lruCache[domain.ProviderName, int64]
	metrics *observability.Metrics
}

// NewCachedProviders creates a cache decorator. metrics may be nil.
func NewCachedProviders(inner ProviderLookup, maxEntries int, metrics *observability.Metrics) *CachedProviders {
	return &CachedProviders{
		inner:   inner,
		cache:   newLRUCache[domain.ProviderName, int64](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedProviders) ProviderID(ctx context.Context, name domain.ProviderName) (int64, bool, error) {
	if id, ok := c.cache.get(name); ok {
		c.observe("hit")
		return id, true, nil
	}
	c.observe("miss")

	id, found, err := c.inner.ProviderID(ctx, name)
	if err != nil || !found {
		return id, found, err
	}
	c.cache.put(name, id)
	return id, true, nil
}

func (c *CachedProviders) observe(result string) {
	if c.metrics != nil {
		c.metrics.ProviderCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a thread-safe LRU cache. The front of order is the most
// recently used entry.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[K]*list.Element
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[K]*list.Element),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry[K, V]).value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry[K, V]).key)
	}
}

func (c *lruCache[K, V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

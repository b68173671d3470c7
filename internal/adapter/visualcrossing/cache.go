package visualcrossing

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/observability"
)

// CachedFetcher wraps a RainfallFetcher with an in-memory LRU cache of months.
type CachedFetcher struct {
	inner   domain.RainfallFetcher
	cache   *lruCache[[]domain.DailyRainfallRecord]
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator holding up to maxMonths months.
func NewCachedFetcher(inner domain.RainfallFetcher, maxMonths int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache[[]domain.DailyRainfallRecord](maxMonths),
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchMonth(ctx context.Context, lat, lon float64, year, month int) ([]domain.DailyRainfallRecord, error) {
	key := fmt.Sprintf("%.4f,%.4f|%04d-%02d", lat, lon, year, month)
	if records, ok := c.cache.get(key); ok {
		c.metrics.DownloadCache.WithLabelValues("hit").Inc()
		return clone(records), nil
	}
	c.metrics.DownloadCache.WithLabelValues("miss").Inc()

	records, err := c.inner.FetchMonth(ctx, lat, lon, year, month)
	if err != nil {
		return records, err
	}
	// Only cache non-empty months so a month without observations is retried.
	if len(records) > 0 {
		c.cache.put(key, clone(records))
	}
	return records, nil
}

func clone(records []domain.DailyRainfallRecord) []domain.DailyRainfallRecord {
	out := make([]domain.DailyRainfallRecord, len(records))
	copy(out, records)
	return out
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) unlink(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}

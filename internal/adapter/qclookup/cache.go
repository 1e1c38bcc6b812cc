package qclookup

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/qartod-export/internal/observability"
)

// cachedFetcher wraps a fetcher with an in-memory LRU cache keyed by URL.
type cachedFetcher struct {
	inner   fetcher
	cache   *lruCache
	metrics *observability.Metrics
}

func newCachedFetcher(inner fetcher, maxEntries int, metrics *observability.Metrics) *cachedFetcher {
	return &cachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *cachedFetcher) fetch(ctx context.Context, url, kind string) (document, error) {
	if doc, ok := c.cache.get(url); ok {
		c.metrics.ReferenceCache.WithLabelValues(kind, "hit").Inc()
		return doc, nil
	}
	c.metrics.ReferenceCache.WithLabelValues(kind, "miss").Inc()

	doc, err := c.inner.fetch(ctx, url, kind)
	if err != nil {
		return doc, err
	}
	// Only cache published tables so a table added upstream mid-run is picked up.
	if doc.found {
		c.cache.put(url, doc)
	}
	return doc, nil
}

// lruCache is a thread-safe LRU of fetched documents. The front of order is
// the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
}

type entry struct {
	url string
	doc document
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(url string) (document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[url]
	if !ok {
		return document{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).doc, true
}

func (c *lruCache) put(url string, doc document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[url]; ok {
		el.Value.(*entry).doc = doc
		c.order.MoveToFront(el)
		return
	}
	c.entries[url] = c.order.PushFront(&entry{url: url, doc: doc})

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).url)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

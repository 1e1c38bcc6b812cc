package qclookup

import (
	"context"
	"testing"

	"github.com/couchcryptid/qartod-export/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingFetcher struct {
	calls int
	doc   document
}

func (m *countingFetcher) fetch(_ context.Context, _, _ string) (document, error) {
	m.calls++
	return m.doc, nil
}

func docWith(cell string) document {
	return document{found: true, records: [][]string{{cell}}}
}

// --- cachedFetcher tests ---

func TestCachedFetcher_Hit(t *testing.T) {
	inner := &countingFetcher{doc: docWith("a")}
	cached := newCachedFetcher(inner, 10, observability.NewMetrics())

	d1, err := cached.fetch(context.Background(), "u1", kindGrossRange)
	require.NoError(t, err)
	d2, err := cached.fetch(context.Background(), "u1", kindGrossRange)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedFetcher_NotFoundNotCached(t *testing.T) {
	inner := &countingFetcher{doc: document{}}
	cached := newCachedFetcher(inner, 10, observability.NewMetrics())

	_, _ = cached.fetch(context.Background(), "u1", kindClimatology)
	_, _ = cached.fetch(context.Background(), "u1", kindClimatology)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, cached.cache.size())
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", docWith("A"))
	c.put("b", docWith("B"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result.records[0][0])

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", docWith("A"))
	c.put("b", docWith("B"))
	c.put("c", docWith("C")) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", result.records[0][0])

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result.records[0][0])
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", docWith("A"))
	c.put("b", docWith("B"))

	c.get("a")

	// "b" is now least recently used.
	c.put("c", docWith("C"))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", docWith("A1"))
	c.put("a", docWith("A2"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result.records[0][0])
	assert.Equal(t, 1, c.size())
}

func TestLRUCache_EvictedEntryCanReturn(t *testing.T) {
	c := newLRUCache(1)

	c.put("a", docWith("A"))
	c.put("b", docWith("B"))  // evicts "a"
	c.put("a", docWith("A2")) // evicts "b"

	_, ok := c.get("b")
	assert.False(t, ok)
	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result.records[0][0])
	assert.Equal(t, 1, c.size())
}

// Package cache provides an in-memory LRU cache for retrieval results.
package cache

import (
	"container/list"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// Ensure QueryCache implements the interface.
var _ driven.QueryCache = (*QueryCache)(nil)

type key struct {
	version uint64
	k       int
	query   uint64
}

type entry struct {
	key     key
	query   string
	result  domain.RetrievalResult
	expires time.Time
}

// QueryCache is a thread-safe LRU of retrieval results keyed by index
// version, k and query text.
type QueryCache struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	ll    *list.List
	items map[key]*list.Element
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithTTL expires entries after d. Zero keeps entries until evicted.
func WithTTL(d time.Duration) Option {
	return func(c *QueryCache) { c.ttl = d }
}

// New creates a cache holding at most capacity results.
func New(capacity int, opts ...Option) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &QueryCache{
		capacity: capacity,
		now:      time.Now,
		ll:       list.New(),
		items:    make(map[key]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func makeKey(version uint64, query string, k int) key {
	return key{version: version, k: k, query: xxhash.Sum64String(query)}
}

// Get returns a copy of the cached result and marks it recently used.
func (c *QueryCache) Get(version uint64, query string, k int) (domain.RetrievalResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[makeKey(version, query, k)]
	if !ok {
		return domain.RetrievalResult{}, false
	}

	e := el.Value.(*entry)
	// The hash is only a lookup key; a collision must not return another query's hits.
	if e.query != query {
		return domain.RetrievalResult{}, false
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		c.remove(el)
		return domain.RetrievalResult{}, false
	}

	c.ll.MoveToFront(el)
	return clone(e.result), true
}

// Put stores a copy of result, evicting the least recently used entry when full.
func (c *QueryCache) Put(version uint64, query string, k int, result domain.RetrievalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kk := makeKey(version, query, k)
	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}

	if el, ok := c.items[kk]; ok {
		e := el.Value.(*entry)
		e.query = query
		e.result = clone(result)
		e.expires = expires
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&entry{key: kk, query: query, result: clone(result), expires: expires})
	c.items[kk] = el

	for c.ll.Len() > c.capacity {
		c.remove(c.ll.Back())
	}
}

// Purge drops every entry.
func (c *QueryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// remove assumes the lock is held.
func (c *QueryCache) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

func clone(r domain.RetrievalResult) domain.RetrievalResult {
	r.Hits = slices.Clone(r.Hits)
	return r
}

// Package cache memoizes deterministic calculation results.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a size-bounded, concurrency-safe cache with optional TTL.
type LRU[K comparable, V any] struct {
	cache  *lru.Cache[K, entry[V]]
	ttl    time.Duration
	now    func() time.Time
	hits   atomic.Uint64
	misses atomic.Uint64

	// guards compute so concurrent misses on one key run fn once
	mu       sync.Mutex
	inflight map[K]*call[V]
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type call[V any] struct {
	done  chan struct{}
	value V
	ok    bool
}

// New creates a cache holding at most size entries. A zero ttl never expires.
func New[K comparable, V any](size int, ttl time.Duration) (*LRU[K, V], error) {
	c, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{
		cache:    c,
		ttl:      ttl,
		now:      time.Now,
		inflight: make(map[K]*call[V]),
	}, nil
}

func (c *LRU[K, V]) expired(e entry[V]) bool {
	return c.ttl > 0 && c.now().After(e.expiresAt)
}

// lookup returns the live value for key without touching the counters.
func (c *LRU[K, V]) lookup(key K) (V, bool) {
	e, ok := c.cache.Get(key)
	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Get returns the live value for key.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores value under key, evicting the least recently used entry when
// full.
func (c *LRU[K, V]) Set(key K, value V) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}
	c.cache.Add(key, entry[V]{value: value, expiresAt: expiresAt})
}

// GetOrCompute returns the cached value for key or stores the result of fn.
// The bool reports a cache hit. Concurrent callers for one key share a
// single fn call and count as hits; only the caller running fn counts a
// miss. If fn panics the waiters retry.
func (c *LRU[K, V]) GetOrCompute(key K, fn func() V) (V, bool) {
	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return v, true
	}

	c.mu.Lock()
	if pending, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-pending.done
		if !pending.ok {
			return c.GetOrCompute(key, fn)
		}
		c.hits.Add(1)
		return pending.value, true
	}
	if e, ok := c.cache.Peek(key); ok && !c.expired(e) {
		c.mu.Unlock()
		c.hits.Add(1)
		return e.value, true
	}
	pending := &call[V]{done: make(chan struct{})}
	c.inflight[key] = pending
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		close(pending.done)
	}()

	pending.value = fn()
	c.Set(key, pending.value)
	pending.ok = true
	c.misses.Add(1)

	return pending.value, false
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU[K, V]) Len() int {
	return c.cache.Len()
}

// Purge drops every entry.
func (c *LRU[K, V]) Purge() {
	c.cache.Purge()
}

type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hitRate"`
}

func (c *LRU[K, V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	rate := 0.0
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, Size: c.cache.Len(), HitRate: rate}
}

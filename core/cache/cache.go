// Package cache provides a two-level memoizing map: owner -> key -> value.
//
// Entries are computed at most once per (owner, key), are never evicted and
// are shared by every later caller. A computed value is stored whatever it
// is, so negative outcomes are remembered just like positive ones.
package cache

import (
	"sync"
	"sync/atomic"
)

type entry[V any] struct {
	once  sync.Once
	value V
	done  atomic.Bool
}

type bucket[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
}

// Cache memoizes values per owner and key. The zero value is ready to use.
type Cache[O, K comparable, V any] struct {
	mu      sync.RWMutex
	buckets map[O]*bucket[K, V]
}

// New creates an empty cache.
func New[O, K comparable, V any]() *Cache[O, K, V] {
	return &Cache[O, K, V]{}
}

// Resolve returns the value stored for owner and key, calling compute to
// produce it when absent. Concurrent callers for the same key wait for a
// single computation and observe its result.
//
// If compute panics the entry stays empty and the panic propagates; the next
// caller computes again.
func (c *Cache[O, K, V]) Resolve(owner O, key K, compute func() V) V {
	return c.ResolveOrSkip(owner, key, func() (V, bool) {
		return compute(), true
	})
}

// ResolveOrSkip is like Resolve, but compute may decline to store its result
// by returning store=false. Declined results are returned to the caller only;
// the next caller computes again.
func (c *Cache[O, K, V]) ResolveOrSkip(owner O, key K, compute func() (v V, store bool)) V {
	b := c.bucket(owner)
	e := b.entry(key)

	var (
		skipped V
		skip    bool
	)
	e.once.Do(func() {
		defer func() {
			if !e.done.Load() {
				b.drop(key, e)
			}
		}()

		v, store := compute()
		if !store {
			skipped, skip = v, true
			return
		}
		e.value = v
		e.done.Store(true)
	})
	switch {
	case skip:
		return skipped
	case !e.done.Load():
		// The computation owning this entry declined to store or panicked.
		return c.ResolveOrSkip(owner, key, compute)
	default:
		return e.value
	}
}

// Get returns the stored value without computing it.
func (c *Cache[O, K, V]) Get(owner O, key K) (V, bool) {
	var zero V

	c.mu.RLock()
	b, ok := c.buckets[owner]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok || !e.done.Load() {
		return zero, false
	}
	return e.value, true
}

// Len returns the number of stored entries for owner.
func (c *Cache[O, K, V]) Len(owner O) int {
	c.mu.RLock()
	b, ok := c.buckets[owner]
	c.mu.RUnlock()
	if !ok {
		return 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, e := range b.entries {
		if e.done.Load() {
			n++
		}
	}
	return n
}

// Owners returns the owners that have a bucket.
func (c *Cache[O, K, V]) Owners() []O {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]O, 0, len(c.buckets))
	for o := range c.buckets {
		out = append(out, o)
	}
	return out
}

func (c *Cache[O, K, V]) bucket(owner O) *bucket[K, V] {
	c.mu.RLock()
	b, ok := c.buckets[owner]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok = c.buckets[owner]; ok {
		return b
	}
	if c.buckets == nil {
		c.buckets = make(map[O]*bucket[K, V])
	}
	b = &bucket[K, V]{entries: make(map[K]*entry[V])}
	c.buckets[owner] = b
	return b
}

func (b *bucket[K, V]) entry(key K) *entry[V] {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()
	if ok {
		return e
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok = b.entries[key]; ok {
		return e
	}
	e = &entry[V]{}
	b.entries[key] = e
	return e
}

// drop removes e if it is still the entry stored under key.
func (b *bucket[K, V]) drop(key K, e *entry[V]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.entries[key] == e {
		delete(b.entries, key)
	}
}

// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package cache

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// entry is a cached value. Value and expiry are immutable; entries are
// replaced, never modified, so compare-and-swap on the pointer is the per-key
// write primitive. lastAccess is the only mutable field and only orders
// eviction.
type entry[V any] struct {
	value      V
	expiresAt  time.Time
	lastAccess atomic.Int64
}

func newEntry[V any](value V, now time.Time, ttl time.Duration) *entry[V] {
	e := &entry[V]{value: value, expiresAt: now.Add(ttl)}
	e.lastAccess.Store(now.UnixNano())
	return e
}

func (e *entry[V]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int64 `json:"entries"`
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Keyed is a concurrent TTL map with per-key atomicity.
//
// Readers never take a lock. Writers synchronize only with writers of the same
// key through compare-and-swap, so a write to key A never blocks a read or a
// write of key B. Each entry carries its own expiry, checked lazily on read;
// PurgeExpired removes expired entries in bulk.
//
// Capacity is a soft bound: when a new key would exceed it, expired entries are
// purged first and, if the map is still full, the least recently used live
// entries are evicted. Eviction runs in batches of capacity/16 so the scan is
// amortized over many inserts.
type Keyed[V any] struct {
	m        sync.Map
	ttl      time.Duration
	capacity int64
	now      func() time.Time

	size      atomic.Int64
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Option configures a Keyed store.
type Option func(*options)

type options struct {
	capacity int
	now      func() time.Time
}

// WithCapacity bounds the number of live entries. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// NewKeyed creates a keyed store whose entries live for ttl unless a
// per-call TTL is supplied.
//
// Example:
//
//	store := cache.NewKeyed[[]byte](5*time.Minute, cache.WithCapacity(10000))
//	store.Set("fingerprint", payload)
//	if b, ok := store.Get("fingerprint"); ok {
//	    // use b
//	}
func NewKeyed[V any](ttl time.Duration, opts ...Option) *Keyed[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Keyed[V]{
		ttl:      ttl,
		capacity: int64(o.capacity),
		now:      o.now,
	}
}

// Get returns the live value for key.
//
// Behavior:
//   - Returns (zero, false) if the key does not exist
//   - Returns (zero, false) if the entry has expired; the entry is removed
//     unless a concurrent writer already replaced it
//   - Returns (value, true) otherwise
func (k *Keyed[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := k.m.Load(key)
	if !ok {
		k.misses.Add(1)
		return zero, false
	}
	e := raw.(*entry[V])
	if e.expired(k.now()) {
		if k.m.CompareAndDelete(key, e) {
			k.size.Add(-1)
			k.evictions.Add(1)
		}
		k.misses.Add(1)
		return zero, false
	}
	e.lastAccess.Store(k.now().UnixNano())
	k.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the default TTL, replacing any entry.
func (k *Keyed[V]) Set(key string, value V) {
	k.SetWithTTL(key, value, k.ttl)
}

// SetWithTTL stores value under key with a custom TTL, replacing any entry.
func (k *Keyed[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	e := newEntry(value, k.now(), ttl)
	if _, loaded := k.m.Swap(key, e); !loaded {
		k.size.Add(1)
		k.enforceCapacity(key)
	}
}

// SetIfAbsent stores value under key only when no live entry exists.
//
// Returns the value now associated with key and whether this call stored it.
// When two callers race on an empty key exactly one stores; the other gets
// the winner's value back. An expired entry counts as absent.
func (k *Keyed[V]) SetIfAbsent(key string, value V) (V, bool) {
	return k.SetIfAbsentWithTTL(key, value, k.ttl)
}

// SetIfAbsentWithTTL is SetIfAbsent with a custom TTL.
func (k *Keyed[V]) SetIfAbsentWithTTL(key string, value V, ttl time.Duration) (V, bool) {
	fresh := newEntry(value, k.now(), ttl)
	for {
		raw, loaded := k.m.LoadOrStore(key, fresh)
		if !loaded {
			k.size.Add(1)
			k.enforceCapacity(key)
			return value, true
		}
		current := raw.(*entry[V])
		if !current.expired(k.now()) {
			return current.value, false
		}
		if k.m.CompareAndSwap(key, current, fresh) {
			k.evictions.Add(1)
			return value, true
		}
		// Lost a race with another writer for this key; re-read.
	}
}

// Delete removes key. It is a no-op for missing keys.
func (k *Keyed[V]) Delete(key string) {
	if _, loaded := k.m.LoadAndDelete(key); loaded {
		k.size.Add(-1)
	}
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (k *Keyed[V]) PurgeExpired() int {
	now := k.now()
	removed := 0
	k.m.Range(func(key, raw any) bool {
		e := raw.(*entry[V])
		if e.expired(now) && k.m.CompareAndDelete(key, e) {
			k.size.Add(-1)
			removed++
		}
		return true
	})
	k.evictions.Add(int64(removed))
	return removed
}

// Clear removes all entries.
func (k *Keyed[V]) Clear() {
	k.m.Range(func(key, _ any) bool {
		if _, loaded := k.m.LoadAndDelete(key); loaded {
			k.size.Add(-1)
		}
		return true
	})
}

// Len returns the number of stored entries, including expired entries that
// have not been purged yet.
func (k *Keyed[V]) Len() int {
	return int(k.size.Load())
}

// Stats returns a snapshot of the counters.
func (k *Keyed[V]) Stats() Stats {
	return Stats{
		Hits:      k.hits.Load(),
		Misses:    k.misses.Load(),
		Evictions: k.evictions.Load(),
		Entries:   k.size.Load(),
	}
}

// enforceCapacity brings the store back under capacity after an insert by
// evicting the least recently used entries. The key just inserted is never
// chosen for eviction.
func (k *Keyed[V]) enforceCapacity(keep string) {
	if k.capacity <= 0 || k.size.Load() <= k.capacity {
		return
	}
	k.PurgeExpired()
	excess := k.size.Load() - k.capacity
	if excess <= 0 {
		return
	}

	type candidate struct {
		key        any
		raw        any
		lastAccess int64
	}
	candidates := make([]candidate, 0, k.size.Load())
	k.m.Range(func(key, raw any) bool {
		if key.(string) != keep {
			candidates = append(candidates, candidate{key, raw, raw.(*entry[V]).lastAccess.Load()})
		}
		return true
	})
	slices.SortFunc(candidates, func(a, b candidate) int {
		switch {
		case a.lastAccess < b.lastAccess:
			return -1
		case a.lastAccess > b.lastAccess:
			return 1
		default:
			return 0
		}
	})

	batch := int(excess + k.capacity/16)
	for _, c := range candidates {
		if batch == 0 {
			break
		}
		if k.m.CompareAndDelete(c.key, c.raw) {
			k.size.Add(-1)
			k.evictions.Add(1)
			batch--
		}
	}
}

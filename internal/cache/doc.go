// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package cache provides the keyed TTL store behind the prediction fingerprint
cache and the in-memory session assignment store.

# Overview

Keyed[V] provides:
  - Lock-free reads (sync.Map)
  - Per-key compare-and-swap writes; no global write lock
  - Per-entry expiry, checked lazily on Get
  - SetIfAbsent with adopt-the-winner semantics for racing writers
  - A soft capacity bound with purge-then-evict behavior
  - Hit, miss, and eviction counters

# Usage Example

	store := cache.NewKeyed[[]byte](5*time.Minute, cache.WithCapacity(10000))

	if b, ok := store.Get(key); ok {
	    return b
	}
	actual, stored := store.SetIfAbsent(key, computed)

# Thread Safety

All methods are safe for concurrent use. Values are stored as immutable
entries; callers must not mutate a value after storing it.
*/
package cache

// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package persona

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/vitrine/internal/cache"
)

// Assignment sources.
const (
	SourceMatch    = "match"
	SourceOverride = "override"
)

// ErrAssignmentNotFound is returned when a session has no live assignment.
var ErrAssignmentNotFound = errors.New("assignment not found")

// Assignment binds a session to a persona until ExpiresAt.
type Assignment struct {
	SessionID  string     `json:"session_id"`
	PersonaID  string     `json:"persona_id"`
	Source     string     `json:"source"`
	Score      float64    `json:"score"`
	Breakdown  *Breakdown `json:"breakdown,omitempty"`
	Fallback   bool       `json:"fallback,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Expired reports whether the assignment is no longer valid at now.
func (a *Assignment) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// AssignmentStore persists session assignments with per-session atomicity.
// Implementations must never block operations on one session behind writes
// to another.
type AssignmentStore interface {
	// Get returns the live assignment for sessionID or ErrAssignmentNotFound.
	Get(ctx context.Context, sessionID string) (*Assignment, error)

	// PutIfAbsent stores a when the session has no live assignment. It returns
	// the assignment now in effect and whether a was stored; a concurrent
	// loser receives the winner's assignment.
	PutIfAbsent(ctx context.Context, a *Assignment) (*Assignment, bool, error)

	// Put stores a unconditionally (explicit override).
	Put(ctx context.Context, a *Assignment) error

	// Delete removes the session's assignment, if any.
	Delete(ctx context.Context, sessionID string) error

	// PurgeExpired removes expired assignments and reports how many.
	PurgeExpired(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// StoreType selects the assignment storage backend.
type StoreType string

const (
	// StoreMemory keeps assignments in process memory (default, not persistent).
	StoreMemory StoreType = "memory"

	// StoreBadger persists assignments in BadgerDB.
	StoreBadger StoreType = "badger"
)

// OpenStore creates an assignment store. For StoreBadger it opens a BadgerDB
// at path; an empty path opens an in-memory Badger instance.
func OpenStore(storeType StoreType, path string) (AssignmentStore, error) {
	switch storeType {
	case StoreMemory, "":
		return NewMemoryStore(), nil
	case StoreBadger:
		opts := badger.DefaultOptions(path)
		if path == "" {
			opts = opts.WithInMemory(true)
		}
		opts.Logger = nil // Suppress BadgerDB logs

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for assignments: %w", err)
		}
		return NewBadgerStore(db, true), nil
	default:
		return nil, fmt.Errorf("unknown assignment store type %q", storeType)
	}
}

// MemoryStore is an in-process AssignmentStore on a keyed TTL map.
type MemoryStore struct {
	entries *cache.Keyed[*Assignment]
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return newMemoryStoreWithClock(time.Now)
}

func newMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: cache.NewKeyed[*Assignment](DefaultAssignmentTTL, cache.WithClock(now)),
		now:     now,
	}
}

// Get implements AssignmentStore.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Assignment, error) {
	a, ok := s.entries.Get(sessionID)
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return cloneAssignment(a), nil
}

// PutIfAbsent implements AssignmentStore.
func (s *MemoryStore) PutIfAbsent(_ context.Context, a *Assignment) (*Assignment, bool, error) {
	ttl := a.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil, false, fmt.Errorf("assignment for %s already expired", a.SessionID)
	}
	stored := cloneAssignment(a)
	actual, created := s.entries.SetIfAbsentWithTTL(a.SessionID, stored, ttl)
	return cloneAssignment(actual), created, nil
}

// Put implements AssignmentStore.
func (s *MemoryStore) Put(_ context.Context, a *Assignment) error {
	ttl := a.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("assignment for %s already expired", a.SessionID)
	}
	s.entries.SetWithTTL(a.SessionID, cloneAssignment(a), ttl)
	return nil
}

// Delete implements AssignmentStore.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.entries.Delete(sessionID)
	return nil
}

// PurgeExpired implements AssignmentStore.
func (s *MemoryStore) PurgeExpired(_ context.Context) (int, error) {
	return s.entries.PurgeExpired(), nil
}

// Len returns the number of stored assignments.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

// Close implements AssignmentStore.
func (s *MemoryStore) Close() error {
	s.entries.Clear()
	return nil
}

// cloneAssignment copies a so callers never share a stored value.
func cloneAssignment(a *Assignment) *Assignment {
	if a == nil {
		return nil
	}
	c := *a
	if a.Breakdown != nil {
		b := *a.Breakdown
		c.Breakdown = &b
	}
	return &c
}

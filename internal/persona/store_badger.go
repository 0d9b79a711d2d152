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
	"github.com/goccy/go-json"
)

const assignmentKeyPrefix = "assignment:"

// maxConflictRetries bounds optimistic transaction retries in PutIfAbsent.
const maxConflictRetries = 8

// BadgerStore is a BadgerDB-backed AssignmentStore.
//
// Entries are written with a Badger TTL matching ExpiresAt, so Badger drops
// them on compaction; ExpiresAt is still checked on read. PutIfAbsent runs in
// an optimistic transaction: when two writers race on one session Badger
// rejects the second commit with ErrConflict, and the retry reads and adopts
// the first writer's assignment.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
	now    func() time.Time
}

// NewBadgerStore wraps an open database. When ownsDB is true Close also
// closes the database.
func NewBadgerStore(db *badger.DB, ownsDB bool) *BadgerStore {
	return &BadgerStore{db: db, ownsDB: ownsDB, now: time.Now}
}

func assignmentKey(sessionID string) []byte {
	return []byte(assignmentKeyPrefix + sessionID)
}

// Get implements AssignmentStore.
func (s *BadgerStore) Get(_ context.Context, sessionID string) (*Assignment, error) {
	var a *Assignment
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		a, err = s.read(txn, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// read loads a live assignment inside txn.
func (s *BadgerStore) read(txn *badger.Txn, sessionID string) (*Assignment, error) {
	item, err := txn.Get(assignmentKey(sessionID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}

	var a Assignment
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &a)
	}); err != nil {
		// An undecodable record is treated as absent; the next write replaces it.
		return nil, ErrAssignmentNotFound
	}
	if a.Expired(s.now()) {
		return nil, ErrAssignmentNotFound
	}
	return &a, nil
}

func (s *BadgerStore) write(txn *badger.Txn, a *Assignment) error {
	ttl := a.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("assignment for %s already expired", a.SessionID)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assignment: %w", err)
	}
	if err := txn.SetEntry(badger.NewEntry(assignmentKey(a.SessionID), data).WithTTL(ttl)); err != nil {
		return fmt.Errorf("set assignment: %w", err)
	}
	return nil
}

// PutIfAbsent implements AssignmentStore.
func (s *BadgerStore) PutIfAbsent(ctx context.Context, a *Assignment) (*Assignment, bool, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		var (
			existing *Assignment
			created  bool
		)
		err := s.db.Update(func(txn *badger.Txn) error {
			current, err := s.read(txn, a.SessionID)
			switch {
			case err == nil:
				existing = current
				return nil
			case !errors.Is(err, ErrAssignmentNotFound):
				return err
			}
			if err := s.write(txn, a); err != nil {
				return err
			}
			created = true
			return nil
		})

		switch {
		case errors.Is(err, badger.ErrConflict):
			continue
		case err != nil:
			return nil, false, err
		case created:
			return cloneAssignment(a), true, nil
		default:
			return existing, false, nil
		}
	}
	return nil, false, fmt.Errorf("put assignment for %s: %w", a.SessionID, badger.ErrConflict)
}

// Put implements AssignmentStore.
func (s *BadgerStore) Put(_ context.Context, a *Assignment) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.write(txn, a)
	})
}

// Delete implements AssignmentStore.
func (s *BadgerStore) Delete(_ context.Context, sessionID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(assignmentKey(sessionID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete assignment: %w", err)
		}
		return nil
	})
}

// PurgeExpired implements AssignmentStore. Records past ExpiresAt (or that no
// longer decode) are deleted; Badger's own TTL covers the rest on compaction.
func (s *BadgerStore) PurgeExpired(ctx context.Context) (int, error) {
	var expired [][]byte
	now := s.now()

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(assignmentKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var a Assignment
			decodeErr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			})
			if decodeErr != nil || a.Expired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan assignments: %w", err)
	}

	count := 0
	for _, key := range expired {
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		}); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

// Close implements AssignmentStore.
func (s *BadgerStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

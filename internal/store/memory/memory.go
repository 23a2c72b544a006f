// Package memory is the in-process store backend. It is the default for
// local runs and the fixture every service test builds on.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"famledger/internal/core"
	"famledger/internal/store"
)

type Store struct {
	mu      sync.Mutex
	records map[string]core.Record
	balance core.Money
	rev     int64
	clock   func() time.Time
}

func New() *Store {
	return &Store{
		records: make(map[string]core.Record),
		clock:   time.Now,
	}
}

// WithClock replaces the creation-timestamp source, for tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// Append implements store.RecordStore. IDs are UUIDs since there is no
// underlying engine to allocate them.
func (s *Store) Append(_ context.Context, r core.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = s.clock().UTC()
	s.records[r.ID] = r
	return r.ID, nil
}

// Get implements store.RecordStore.
func (s *Store) Get(_ context.Context, id string) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return core.Record{}, core.ErrRecordNotFound
	}
	return r, nil
}

// Delete implements store.RecordStore. Not idempotent: a second delete of
// the same id reports core.ErrRecordNotFound.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return core.ErrRecordNotFound
	}
	delete(s.records, id)
	return nil
}

// List implements store.RecordStore.
func (s *Store) List(_ context.Context, f store.Filter) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Record
	for _, r := range s.records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Balance implements store.BalanceStore.
func (s *Store) Balance(_ context.Context) (core.Money, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, s.rev, nil
}

// CommitBalance implements store.BalanceStore.
func (s *Store) CommitBalance(_ context.Context, value core.Money, expectedRev int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rev != expectedRev {
		return core.ErrBalanceConflict
	}
	s.balance = value
	s.rev++
	return nil
}

// ForceSetBalance implements store.BalanceStore. Ground-truth override,
// reconciliation only.
func (s *Store) ForceSetBalance(_ context.Context, value core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = value
	s.rev++
	return nil
}

// Package store defines the outbound ports of the ledger: the record log
// and the balance aggregate. Adapters live in the subpackages (memory,
// sqlite, firestore).
package store

import (
	"context"

	"famledger/internal/core"
)

// Filter narrows a List call. Zero values mean "no constraint".
type Filter struct {
	Year     int
	Month    int // 1-12
	Category string
	Type     core.EntryType
}

// Matches reports whether a record passes the filter. Adapters that cannot
// push the predicate into their query language apply it in memory.
func (f Filter) Matches(r core.Record) bool {
	if f.Year != 0 && r.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && r.Date.Month() != f.Month {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	return true
}

// Ports for outbound adapters.
type (
	// RecordStore owns the append-only-with-deletion log of ledger
	// records. Writes are all-or-nothing per record; an unreachable
	// store surfaces as core.ErrStorageUnavailable.
	RecordStore interface {
		// Append persists a validated record and returns the freshly
		// allocated id. The store assigns both the id and CreatedAt;
		// whatever the caller put in those fields is ignored.
		Append(ctx context.Context, r core.Record) (id string, err error)

		// Get returns a live record by id, or core.ErrRecordNotFound.
		Get(ctx context.Context, id string) (core.Record, error)

		// Delete removes a live record. Deleting an absent or already
		// deleted id fails with core.ErrRecordNotFound; delete is
		// deliberately not idempotent so callers can tell.
		Delete(ctx context.Context, id string) error

		// List returns live records matching the filter, newest date
		// first, created_at breaking ties. Not transactionally
		// consistent with balance reads.
		List(ctx context.Context, f Filter) ([]core.Record, error)
	}

	// BalanceStore owns the single running-balance value. An absent
	// balance reads as zero with revision 0.
	BalanceStore interface {
		// Balance returns the current value and an opaque revision for
		// use with CommitBalance.
		Balance(ctx context.Context) (core.Money, int64, error)

		// CommitBalance writes value if and only if the balance has
		// not moved since the read that produced expectedRev.
		// Interference fails with core.ErrBalanceConflict and leaves
		// the stored value untouched.
		CommitBalance(ctx context.Context, value core.Money, expectedRev int64) error

		// ForceSetBalance overwrites the balance unconditionally. It
		// redefines ground truth rather than reconciling it, so it is
		// reserved for the reconciliation pass; every other writer
		// goes through CommitBalance.
		ForceSetBalance(ctx context.Context, value core.Money) error
	}

	// Store is a backend that provides both ports.
	Store interface {
		RecordStore
		BalanceStore
	}
)

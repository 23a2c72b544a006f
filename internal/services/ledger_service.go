// Package services holds the transaction coordinator that composes the
// record store and the balance aggregate into the ledger's public
// operations.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"famledger/internal/amqp"
	"famledger/internal/core"
	"famledger/internal/store"
)

// maxBalanceAttempts bounds the optimistic-commit loop. Exhaustion surfaces
// as core.ErrBalanceConflict; the delta is never dropped silently.
const maxBalanceAttempts = 5

// EventPublisher is the optional change-notification hook. The AMQP client
// satisfies it; tests use fakes; nil disables publishing.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// LedgerService coordinates the two-step append/delete protocol: a record
// mutation followed by a balance update. The two writes hit independently
// consistent stores with no shared transaction; if the process dies between
// them the balance drifts from the signed sum of records until the
// reconciler recomputes it. That gap is part of the contract, not a bug to
// paper over here.
type LedgerService struct {
	store  store.Store
	events EventPublisher
	clock  func() time.Time
}

func NewLedgerService(st store.Store, events EventPublisher) *LedgerService {
	return &LedgerService{
		store:  st,
		events: events,
		clock:  time.Now,
	}
}

// WithClock replaces the date-fallback clock, for tests.
func (s *LedgerService) WithClock(clock func() time.Time) *LedgerService {
	s.clock = clock
	return s
}

// NewEntry is the caller-supplied shape of a record to append. The date is
// a tagged variant resolved by the normalizer; everything else is validated
// before any store access.
type NewEntry struct {
	Date     core.DateInput
	Category string
	Amount   core.Money
	Type     core.EntryType
	Note     string
}

// Append validates the entry, normalizes its date, persists the record and
// then applies the signed amount to the balance. A balance failure after the
// record committed is surfaced to the caller and leaves the stores diverged
// until reconciliation.
func (s *LedgerService) Append(ctx context.Context, e NewEntry) (core.Record, error) {
	rec := core.Record{
		Category: e.Category,
		Amount:   e.Amount,
		Type:     e.Type,
		Note:     e.Note,
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}

	// created_at does not exist yet at append time, so the fallback chain
	// bottoms out at the clock.
	date, src := e.Date.Resolve(time.Time{}, s.clock)
	rec.Date = date
	if src.LowConfidence() {
		slog.WarnContext(ctx, "Record date fell back to current date",
			"date", date.String(),
			"source", src.String())
	}

	id, err := s.store.Append(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("append record: %w", err)
	}
	rec.ID = id

	delta := rec.Signed()
	newBalance, balErr := s.UpdateBalance(ctx, delta)

	// The reconciler wants to hear about the mutation even when the
	// balance write failed; the event is its repair trigger.
	s.publishEvent(ctx, amqp.OpAppend, rec.ID, delta.Cents)

	if balErr != nil {
		slog.ErrorContext(ctx, "Record committed but balance update failed",
			"record_id", rec.ID,
			"delta_cents", delta.Cents,
			"error", balErr)
		return rec, fmt.Errorf("update balance after append: %w", balErr)
	}

	slog.InfoContext(ctx, "Record appended",
		"record_id", rec.ID,
		"category", rec.Category,
		"amount_cents", rec.Amount.Cents,
		"type", string(rec.Type),
		"date", rec.Date.String(),
		"balance_cents", newBalance.Cents)

	return rec, nil
}

// Delete removes a record and reverses its contribution to the balance.
// Deleting an absent or already-deleted id fails with
// core.ErrRecordNotFound and touches nothing.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("load record %s: %w", id, err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		// A concurrent delete may win between the Get and here; the
		// not-found propagates so exactly one caller reverses the sign.
		if errors.Is(err, core.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("delete record %s: %w", id, err)
	}

	delta := core.Money{Cents: -rec.Signed().Cents}
	newBalance, balErr := s.UpdateBalance(ctx, delta)

	s.publishEvent(ctx, amqp.OpDelete, id, delta.Cents)

	if balErr != nil {
		slog.ErrorContext(ctx, "Record deleted but balance update failed",
			"record_id", id,
			"delta_cents", delta.Cents,
			"error", balErr)
		return fmt.Errorf("update balance after delete: %w", balErr)
	}

	slog.InfoContext(ctx, "Record deleted",
		"record_id", id,
		"delta_cents", delta.Cents,
		"balance_cents", newBalance.Cents)

	return nil
}

// UpdateBalance applies a signed delta through the optimistic-commit loop:
// read, add, commit-if-unchanged, retry on interference. After
// maxBalanceAttempts conflicts the delta is surfaced as unresolved via
// core.ErrBalanceConflict.
func (s *LedgerService) UpdateBalance(ctx context.Context, delta core.Money) (core.Money, error) {
	for attempt := 1; attempt <= maxBalanceAttempts; attempt++ {
		current, rev, err := s.store.Balance(ctx)
		if err != nil {
			return core.Money{}, fmt.Errorf("read balance: %w", err)
		}

		next := core.Money{Cents: current.Cents + delta.Cents}
		err = s.store.CommitBalance(ctx, next, rev)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, core.ErrBalanceConflict) {
			return core.Money{}, fmt.Errorf("commit balance: %w", err)
		}

		slog.WarnContext(ctx, "Balance commit conflicted, retrying",
			"attempt", attempt,
			"delta_cents", delta.Cents)
	}

	return core.Money{}, fmt.Errorf("balance update gave up after %d attempts: %w",
		maxBalanceAttempts, core.ErrBalanceConflict)
}

// ListRecords returns live records for the query layer.
func (s *LedgerService) ListRecords(ctx context.Context, f store.Filter) ([]core.Record, error) {
	records, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// CurrentBalance returns the balance as of the last committed update. It is
// not transactionally consistent with List.
func (s *LedgerService) CurrentBalance(ctx context.Context) (core.Money, error) {
	balance, _, err := s.store.Balance(ctx)
	if err != nil {
		return core.Money{}, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// MonthSummary aggregates one month's live records for the dashboard.
func (s *LedgerService) MonthSummary(ctx context.Context, year, month int) (core.MonthSummary, error) {
	records, err := s.store.List(ctx, store.Filter{Year: year, Month: month})
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("list records: %w", err)
	}
	return core.Summarize(year, month, records), nil
}

func (s *LedgerService) publishEvent(ctx context.Context, op, recordID string, deltaCents int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, amqp.NewLedgerEventMessage(op, recordID, deltaCents)); err != nil {
		// Events are best effort; the periodic reconcile pass covers
		// anything lost here.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"op", op,
			"record_id", recordID,
			"error", err)
	}
}

// Package worker contains the reconciliation pass that repairs balance
// drift left behind by the non-atomic append/delete protocol.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"famledger/internal/amqp"
	"famledger/internal/core"
	"famledger/internal/store"
)

// Reconciler recomputes the balance from the full live record set and
// overwrites the stored value when the two disagree. It is the only caller
// of ForceSetBalance: reconciliation redefines ground truth from the
// records, it does not merge with concurrent deltas.
type Reconciler struct {
	store store.Store
}

func NewReconciler(st store.Store) *Reconciler {
	return &Reconciler{store: st}
}

// Reconcile runs one pass. It returns the recomputed signed sum and whether
// a repair was written. The List and Balance reads are not a snapshot, so a
// pass that races an in-flight append may "repair" a balance that was about
// to catch up; the next pass converges. Run this sparsely, not per request.
func (r *Reconciler) Reconcile(ctx context.Context) (core.Money, bool, error) {
	records, err := r.store.List(ctx, store.Filter{})
	if err != nil {
		return core.Money{}, false, fmt.Errorf("list records: %w", err)
	}

	var sum core.Money
	for _, rec := range records {
		sum.Cents += rec.Signed().Cents
	}

	current, _, err := r.store.Balance(ctx)
	if err != nil {
		return core.Money{}, false, fmt.Errorf("read balance: %w", err)
	}

	if current.Cents == sum.Cents {
		slog.DebugContext(ctx, "Balance consistent with ledger",
			"balance_cents", current.Cents,
			"records", len(records))
		return sum, false, nil
	}

	if err := r.store.ForceSetBalance(ctx, sum); err != nil {
		return sum, false, fmt.Errorf("repair balance: %w", err)
	}

	slog.WarnContext(ctx, "Repaired balance drift",
		"stored_cents", current.Cents,
		"recomputed_cents", sum.Cents,
		"drift_cents", current.Cents-sum.Cents,
		"records", len(records))

	return sum, true, nil
}

// HandleLedgerEvent is the AMQP consumer hook. The event payload is only a
// trigger; the pass always recomputes from the record set.
func (r *Reconciler) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Reconciling after ledger event",
		"op", msg.Op,
		"record_id", msg.RecordID)
	_, _, err := r.Reconcile(ctx)
	return err
}

// Run reconciles on a fixed interval until the context ends.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := r.Reconcile(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reconciliation failed", "error", err)
			}
		}
	}
}

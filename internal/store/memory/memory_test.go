package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"famledger/internal/core"
	"famledger/internal/store"
)

func testRecord(cat string, cents int64, typ core.EntryType) core.Record {
	return core.Record{
		Date:     core.NewDate(2024, 1, 5),
		Category: cat,
		Amount:   core.Money{Cents: cents},
		Type:     typ,
	}
}

func TestAppendAssignsIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return created })

	id, err := s.Append(ctx, testRecord("Food", 12000, core.Expense))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != id {
		t.Fatalf("id = %q, want %q", got.ID, id)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, created)
	}
}

func TestDeleteNotIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Append(ctx, testRecord("Food", 100, core.Expense))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("second delete = %v, want ErrRecordNotFound", err)
	}
	if err := s.Delete(ctx, "no-such-id"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("delete unknown = %v, want ErrRecordNotFound", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})

	jan := core.Record{Date: core.NewDate(2024, 1, 5), Category: "Food", Amount: core.Money{Cents: 100}, Type: core.Expense}
	feb := core.Record{Date: core.NewDate(2024, 2, 10), Category: "Food", Amount: core.Money{Cents: 200}, Type: core.Expense}
	salary := core.Record{Date: core.NewDate(2024, 1, 25), Category: "Salary", Amount: core.Money{Cents: 300}, Type: core.Income}
	for _, r := range []core.Record{jan, feb, salary} {
		if _, err := s.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.List(ctx, store.Filter{Year: 2024, Month: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("january records = %d, want 2", len(got))
	}
	// Newest date first.
	if got[0].Category != "Salary" || got[1].Category != "Food" {
		t.Fatalf("unexpected order: %s then %s", got[0].Category, got[1].Category)
	}

	got, err = s.List(ctx, store.Filter{Type: core.Income})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Category != "Salary" {
		t.Fatalf("income filter returned %+v", got)
	}
}

func TestBalanceCAS(t *testing.T) {
	ctx := context.Background()
	s := New()

	val, rev, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if val.Cents != 0 || rev != 0 {
		t.Fatalf("fresh balance = %d rev %d, want 0/0", val.Cents, rev)
	}

	if err := s.CommitBalance(ctx, core.Money{Cents: 500}, rev); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// A second commit against the stale revision must conflict and leave
	// the value untouched.
	if err := s.CommitBalance(ctx, core.Money{Cents: 999}, rev); !errors.Is(err, core.ErrBalanceConflict) {
		t.Fatalf("stale commit = %v, want ErrBalanceConflict", err)
	}
	val, rev, err = s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if val.Cents != 500 {
		t.Fatalf("balance = %d, want 500", val.Cents)
	}

	if err := s.ForceSetBalance(ctx, core.Money{Cents: -100}); err != nil {
		t.Fatalf("force set: %v", err)
	}
	val, rev2, err := s.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if val.Cents != -100 {
		t.Fatalf("balance = %d, want -100", val.Cents)
	}
	if rev2 == rev {
		t.Fatal("force set must bump the revision")
	}
}

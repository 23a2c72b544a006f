package core

import (
	"errors"
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if err := (Money{Cents: -500}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}

func TestEntryTypeSigned(t *testing.T) {
	if got := Income.Signed(Money{Cents: 120}); got.Cents != 120 {
		t.Fatalf("income signed = %d, want 120", got.Cents)
	}
	if got := Expense.Signed(Money{Cents: 120}); got.Cents != -120 {
		t.Fatalf("expense signed = %d, want -120", got.Cents)
	}
}

func TestRecordValidate(t *testing.T) {
	good := Record{
		Date:     NewDate(2024, 1, 5),
		Category: "Food",
		Amount:   Money{Cents: 12000},
		Type:     Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		r    Record
		want error
	}{
		{"zero amount", Record{Category: "Food", Amount: Money{Cents: 0}, Type: Expense}, ErrInvalidAmount},
		{"negative amount", Record{Category: "Food", Amount: Money{Cents: -500}, Type: Expense}, ErrInvalidAmount},
		{"empty category", Record{Category: "", Amount: Money{Cents: 100}, Type: Income}, ErrEmptyCategory},
		{"blank category", Record{Category: "   ", Amount: Money{Cents: 100}, Type: Income}, ErrEmptyCategory},
		{"unknown type", Record{Category: "Food", Amount: Money{Cents: 100}, Type: "Transfer"}, ErrInvalidType},
		{"missing type", Record{Category: "Food", Amount: Money{Cents: 100}}, ErrInvalidType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.r.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDateFromTruncates(t *testing.T) {
	ts := time.Date(2024, 2, 1, 23, 59, 59, 123, time.UTC)
	d := DateFrom(ts)
	if d.String() != "2024-02-01" {
		t.Fatalf("got %s, want 2024-02-01", d)
	}
	if h, m, s := d.Clock(); h != 0 || m != 0 || s != 0 {
		t.Fatalf("expected midnight, got %02d:%02d:%02d", h, m, s)
	}
	if d.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", d.Location())
	}
}

func TestDateEqualityAcrossZones(t *testing.T) {
	zone := time.FixedZone("UTC+8", 8*3600)
	// 03:00 UTC on Feb 1 is 11:00 local in UTC+8; both normalize to the
	// same UTC calendar day.
	utc := time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC)
	local := utc.In(zone)
	if DateFrom(utc) != DateFrom(local) {
		t.Fatalf("normalized dates differ: %s vs %s", DateFrom(utc), DateFrom(local))
	}
}

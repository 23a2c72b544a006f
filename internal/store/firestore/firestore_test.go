package firestore

import (
	"testing"
	"time"

	"famledger/internal/core"
)

func TestRecordDocRoundTrip(t *testing.T) {
	in := core.Record{
		Date:     core.NewDate(2024, 1, 5),
		Category: "Food",
		Amount:   core.Money{Cents: 12000},
		Type:     core.Expense,
		Note:     "dinner",
	}
	d := toDoc(in)
	if d.Date != "2024-01-05" {
		t.Fatalf("stored date = %q, want 2024-01-05", d.Date)
	}
	if d.Amount != 12000 || d.Type != "Expense" {
		t.Fatalf("stored doc = %+v", d)
	}
	if !d.CreatedAt.IsZero() {
		t.Fatal("created_at must stay zero so the server stamps it")
	}

	d.CreatedAt = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	out, err := fromDoc("abc123", d)
	if err != nil {
		t.Fatalf("fromDoc: %v", err)
	}
	if out.ID != "abc123" {
		t.Fatalf("id = %q, want abc123", out.ID)
	}
	if out.Date != in.Date || out.Category != in.Category || out.Amount != in.Amount || out.Type != in.Type || out.Note != in.Note {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestFromDocRejectsBadDate(t *testing.T) {
	if _, err := fromDoc("x", recordDoc{Date: "N/A"}); err == nil {
		t.Fatal("expected error for unparseable stored date")
	}
}

func TestDateRange(t *testing.T) {
	cases := []struct {
		year, month int
		start, end  string
	}{
		{2024, 1, "2024-01-01", "2024-02-01"},
		{2024, 12, "2024-12-01", "2025-01-01"},
		{2024, 0, "2024-01-01", "2025-01-01"},
	}
	for _, tc := range cases {
		start, end := dateRange(tc.year, tc.month)
		if start != tc.start || end != tc.end {
			t.Fatalf("dateRange(%d, %d) = %s..%s, want %s..%s",
				tc.year, tc.month, start, end, tc.start, tc.end)
		}
	}
}

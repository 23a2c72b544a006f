package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"famledger/internal/services"
	"famledger/internal/store/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	st := memory.New()
	svc := services.NewLedgerService(st, nil).WithClock(func() time.Time {
		return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	})
	return NewServer(":0", svc).Handler
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestCreateRecord(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/records", map[string]string{
		"date":     "2024-03-10",
		"category": "Groceries",
		"amount":   "120.50",
		"type":     "Expense",
		"note":     "weekly shop",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["id"] == "" {
		t.Error("response missing id")
	}
	if body["date"] != "2024-03-10" {
		t.Errorf("date = %v, want 2024-03-10", body["date"])
	}
	if body["amount"] != "120.50" {
		t.Errorf("amount = %v, want 120.50", body["amount"])
	}
	if body["type"] != "Expense" {
		t.Errorf("type = %v, want Expense", body["type"])
	}
}

func TestCreateRecordWithoutDateUsesClock(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/records", map[string]string{
		"category": "Salary",
		"amount":   "1000.00",
		"type":     "Income",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["date"] != "2024-03-15" {
		t.Errorf("date = %v, want clock date 2024-03-15", body["date"])
	}
}

func TestCreateRecordValidation(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		req  map[string]string
		want int
	}{
		{
			name: "zero amount",
			req:  map[string]string{"category": "Food", "amount": "0", "type": "Expense"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "negative amount",
			req:  map[string]string{"category": "Food", "amount": "-5.00", "type": "Expense"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "garbage amount",
			req:  map[string]string{"category": "Food", "amount": "abc", "type": "Expense"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "empty category",
			req:  map[string]string{"category": "  ", "amount": "10.00", "type": "Expense"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown type",
			req:  map[string]string{"category": "Food", "amount": "10.00", "type": "Transfer"},
			want: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/records", tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateRecordMalformedBody(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/records", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteRecordNotIdempotent(t *testing.T) {
	h := newTestHandler(t)

	created := doJSON(t, h, http.MethodPost, "/api/records", map[string]string{
		"category": "Rent", "amount": "800.00", "type": "Expense",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body: %s", created.Code, created.Body.String())
	}
	id := decodeBody(t, created)["id"].(string)

	first := doJSON(t, h, http.MethodDelete, "/api/records/"+id, nil)
	if first.Code != http.StatusNoContent {
		t.Fatalf("first delete status = %d, want 204", first.Code)
	}

	second := doJSON(t, h, http.MethodDelete, "/api/records/"+id, nil)
	if second.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", second.Code)
	}
}

func TestDeleteUnknownRecord(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodDelete, "/api/records/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBalanceTracksMutations(t *testing.T) {
	h := newTestHandler(t)

	doJSON(t, h, http.MethodPost, "/api/records", map[string]string{
		"category": "Salary", "amount": "5000.00", "type": "Income",
	})
	created := doJSON(t, h, http.MethodPost, "/api/records", map[string]string{
		"category": "Groceries", "amount": "120.00", "type": "Expense",
	})
	id := decodeBody(t, created)["id"].(string)

	rec := doJSON(t, h, http.MethodGet, "/api/balance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["balance_cents"]; got != float64(488000) {
		t.Errorf("balance_cents = %v, want 488000", got)
	}

	doJSON(t, h, http.MethodDelete, "/api/records/"+id, nil)

	rec = doJSON(t, h, http.MethodGet, "/api/balance", nil)
	if got := decodeBody(t, rec)["balance_cents"]; got != float64(500000) {
		t.Errorf("balance_cents after delete = %v, want 500000", got)
	}
}

func TestListRecordsFiltered(t *testing.T) {
	h := newTestHandler(t)

	for i, entry := range []map[string]string{
		{"date": "2024-03-01", "category": "Groceries", "amount": "10.00", "type": "Expense"},
		{"date": "2024-03-02", "category": "Salary", "amount": "100.00", "type": "Income"},
		{"date": "2024-04-01", "category": "Groceries", "amount": "20.00", "type": "Expense"},
	} {
		if rec := doJSON(t, h, http.MethodPost, "/api/records", entry); rec.Code != http.StatusCreated {
			t.Fatalf("create %d status = %d", i, rec.Code)
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?year=2024&month=3", 2},
		{"?category=Groceries", 2},
		{"?year=2024&month=3&type=Income", 1},
		{"?year=2023", 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("q=%s", tt.query), func(t *testing.T) {
			rec := doJSON(t, h, http.MethodGet, "/api/records"+tt.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			records, _ := decodeBody(t, rec)["records"].([]any)
			if len(records) != tt.want {
				t.Errorf("got %d records, want %d", len(records), tt.want)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	h := newTestHandler(t)

	for _, entry := range []map[string]string{
		{"date": "2024-03-01", "category": "Salary", "amount": "3000.00", "type": "Income"},
		{"date": "2024-03-05", "category": "Groceries", "amount": "200.00", "type": "Expense"},
		{"date": "2024-03-09", "category": "Rent", "amount": "900.00", "type": "Expense"},
	} {
		doJSON(t, h, http.MethodPost, "/api/records", entry)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/summary?year=2024&month=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["income_cents"] != float64(300000) {
		t.Errorf("income_cents = %v, want 300000", body["income_cents"])
	}
	if body["expense_cents"] != float64(110000) {
		t.Errorf("expense_cents = %v, want 110000", body["expense_cents"])
	}
	if body["net_cents"] != float64(190000) {
		t.Errorf("net_cents = %v, want 190000", body["net_cents"])
	}

	categories, _ := body["by_category"].([]any)
	if len(categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(categories))
	}
	first, _ := categories[0].(map[string]any)
	if first["name"] != "Rent" {
		t.Errorf("largest category = %v, want Rent", first["name"])
	}
}

func TestSummaryRejectsBadMonth(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/summary?year=2024&month=13", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCategories(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	categories, _ := decodeBody(t, rec)["categories"].([]any)
	if len(categories) == 0 {
		t.Error("expected non-empty category suggestions")
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"famledger/internal/core"
	"famledger/internal/services"
	"famledger/internal/store"
)

type createRecordRequest struct {
	Date     string `json:"date"` // optional YYYY-MM-DD
	Category string `json:"category"`
	Amount   string `json:"amount"` // positive decimal, "120.00"
	Type     string `json:"type"`   // "Income" or "Expense"
	Note     string `json:"note"`
}

type recordResponse struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Category  string `json:"category"`
	Amount    string `json:"amount"`
	Type      string `json:"type"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toRecordResponse(r core.Record) recordResponse {
	resp := recordResponse{
		ID:       r.ID,
		Date:     r.Date.String(),
		Category: r.Category,
		Amount:   strconv.FormatFloat(r.Amount.Units(), 'f', 2, 64),
		Type:     string(r.Type),
		Note:     r.Note,
	}
	if !r.CreatedAt.IsZero() {
		resp.CreatedAt = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.ErrorContext(r.Context(), "Malformed create request", "error", err)
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	date := core.NoDate()
	if strings.TrimSpace(req.Date) != "" {
		date = core.DateString(req.Date)
	}

	rec, err := s.ledger.Append(r.Context(), services.NewEntry{
		Date:     date,
		Category: req.Category,
		Amount:   core.Money{Cents: cents},
		Type:     core.EntryType(req.Type),
		Note:     req.Note,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRecordResponse(rec))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing record id")
		return
	}

	if err := s.ledger.Delete(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	f := store.Filter{
		Year:     queryInt(r, "year"),
		Month:    queryInt(r, "month"),
		Category: r.URL.Query().Get("category"),
		Type:     core.EntryType(r.URL.Query().Get("type")),
	}

	records, err := s.ledger.ListRecords(r.Context(), f)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]recordResponse, len(records))
	for i, rec := range records {
		out[i] = toRecordResponse(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.CurrentBalance(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":       strconv.FormatFloat(balance.Units(), 'f', 2, 64),
		"balance_cents": balance.Cents,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := queryInt(r, "year")
	if year == 0 {
		year = now.Year()
	}
	month := queryInt(r, "month")
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		writeError(w, http.StatusUnprocessableEntity, "month must be 1-12")
		return
	}

	summary, err := s.ledger.MonthSummary(r.Context(), year, month)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	categories := make([]map[string]any, len(summary.ByCategory))
	for i, c := range summary.ByCategory {
		categories[i] = map[string]any{
			"name":         c.Name,
			"amount_cents": c.Amount.Cents,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":          summary.Year,
		"month":         summary.Month,
		"income_cents":  summary.Income.Cents,
		"expense_cents": summary.Expense.Cents,
		"net_cents":     summary.Net.Cents,
		"by_category":   categories,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": core.SuggestedCategories})
}

func queryInt(r *http.Request, key string) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// respondDomainError maps the ledger's error taxonomy onto status codes.
// Every error reaches the client; an error response means the caller must
// re-read before assuming anything about state.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidType):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, core.ErrBalanceConflict):
		slog.ErrorContext(r.Context(), "Balance update conflict surfaced to client", "error", err)
		writeError(w, http.StatusConflict, "balance update conflict; state may be inconsistent, re-read before retrying")
	case errors.Is(err, core.ErrStorageUnavailable):
		slog.ErrorContext(r.Context(), "Storage unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		slog.ErrorContext(r.Context(), "Unhandled ledger error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

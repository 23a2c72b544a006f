// Package http exposes the ledger's operations as a small JSON API. It is
// a thin caller of the coordinator: parse, validate, call, respond.
package http

import (
	"context"
	"net/http"
	"time"

	"famledger/internal/core"
	"famledger/internal/middleware/trace"
	"famledger/internal/services"
	"famledger/internal/store"
)

// Ledger is the slice of the coordinator the handlers need.
type Ledger interface {
	Append(ctx context.Context, e services.NewEntry) (core.Record, error)
	Delete(ctx context.Context, id string) error
	ListRecords(ctx context.Context, f store.Filter) ([]core.Record, error)
	CurrentBalance(ctx context.Context) (core.Money, error)
	MonthSummary(ctx context.Context, year, month int) (core.MonthSummary, error)
}

type Server struct {
	ledger Ledger
}

// NewServer wires the routes and returns a configured http.Server.
func NewServer(addr string, ledger Ledger) *http.Server {
	s := &Server{ledger: ledger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/records", s.handleCreateRecord)
	mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)
	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	tracer := trace.NewMiddleware(clientIP)

	return &http.Server{
		Addr:           addr,
		Handler:        tracer.Middleware(mux),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

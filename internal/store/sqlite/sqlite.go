// Package sqlite is the local relational store backend. Record IDs are
// UUIDs allocated at append time; the balance row carries a revision column
// that backs the optimistic commit.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"famledger/internal/core"
	"famledger/internal/store"
)

type Repository struct {
	db    *sql.DB
	clock func() time.Time
}

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, clock: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithClock replaces the creation-timestamp source, for tests.
func (r *Repository) WithClock(clock func() time.Time) *Repository {
	r.clock = clock
	return r
}

// storageErr tags a driver failure with the domain's unavailable sentinel so
// callers can errors.Is it without knowing the backend.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStorageUnavailable, err)
}

// Append implements store.RecordStore.
func (r *Repository) Append(ctx context.Context, rec core.Record) (string, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = r.clock().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (id, date, category, amount_cents, type, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Date.String(), rec.Category, rec.Amount.Cents,
		string(rec.Type), rec.Note, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", storageErr("insert record", err)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"id", rec.ID,
		"category", rec.Category,
		"amount_cents", rec.Amount.Cents,
		"type", string(rec.Type),
		"date", rec.Date.String())

	return rec.ID, nil
}

// Get implements store.RecordStore.
func (r *Repository) Get(ctx context.Context, id string) (core.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, category, amount_cents, type, note, created_at
		FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.ErrRecordNotFound
	}
	if err != nil {
		return core.Record{}, storageErr("get record", err)
	}
	return rec, nil
}

// Delete implements store.RecordStore. Not idempotent.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete record", err)
	}
	if n == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// List implements store.RecordStore.
func (r *Repository) List(ctx context.Context, f store.Filter) ([]core.Record, error) {
	var (
		conds []string
		args  []any
	)
	if f.Year != 0 && f.Month != 0 {
		conds = append(conds, "date LIKE ?")
		args = append(args, fmt.Sprintf("%04d-%02d-%%", f.Year, f.Month))
	} else if f.Year != 0 {
		conds = append(conds, "date LIKE ?")
		args = append(args, fmt.Sprintf("%04d-%%", f.Year))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}

	q := `SELECT id, date, category, amount_cents, type, note, created_at FROM records`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("list records", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr("scan record", err)
		}
		// A month-only filter cannot be pushed into the LIKE above.
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list records", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (core.Record, error) {
	var (
		rec       core.Record
		date      string
		typ       string
		createdAt string
	)
	if err := s.Scan(&rec.ID, &date, &rec.Category, &rec.Amount.Cents, &typ, &rec.Note, &createdAt); err != nil {
		return core.Record{}, err
	}
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return core.Record{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	rec.Date = core.DateFrom(d)
	rec.Type = core.EntryType(typ)
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return core.Record{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return rec, nil
}

// Balance implements store.BalanceStore. An absent row reads as zero.
func (r *Repository) Balance(ctx context.Context) (core.Money, int64, error) {
	var (
		cents int64
		rev   int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT cents, revision FROM balance WHERE id = 1`).Scan(&cents, &rev)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, 0, nil
	}
	if err != nil {
		return core.Money{}, 0, storageErr("read balance", err)
	}
	return core.Money{Cents: cents}, rev, nil
}

// CommitBalance implements store.BalanceStore. The revision column makes the
// UPDATE a compare-and-swap: zero rows affected means another writer got
// there first.
func (r *Repository) CommitBalance(ctx context.Context, value core.Money, expectedRev int64) error {
	now := r.clock().UTC().Format(time.RFC3339Nano)

	res, err := r.db.ExecContext(ctx, `
		UPDATE balance SET cents = ?, revision = revision + 1, last_updated = ?
		WHERE id = 1 AND revision = ?`,
		value.Cents, now, expectedRev)
	if err != nil {
		return storageErr("commit balance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("commit balance", err)
	}
	if n > 0 {
		return nil
	}

	if expectedRev != 0 {
		return core.ErrBalanceConflict
	}

	// First ever commit: the row does not exist yet. A concurrent creator
	// trips the primary key, which is the same interference.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO balance (id, cents, revision, last_updated) VALUES (1, ?, 1, ?)`,
		value.Cents, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "PRIMARY") {
			return core.ErrBalanceConflict
		}
		return storageErr("init balance", err)
	}
	return nil
}

// ForceSetBalance implements store.BalanceStore. Ground-truth override,
// reconciliation only.
func (r *Repository) ForceSetBalance(ctx context.Context, value core.Money) error {
	now := r.clock().UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO balance (id, cents, revision, last_updated) VALUES (1, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET cents = excluded.cents,
			revision = balance.revision + 1, last_updated = excluded.last_updated`,
		value.Cents, now)
	if err != nil {
		return storageErr("force set balance", err)
	}
	return nil
}

package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  EntryType = "Income"
	Expense EntryType = "Expense"
)

type (
	// EntryType is the direction of a ledger record. The sign of a record
	// is always derived from its type, never stored in the amount.
	EntryType string

	// Date is a timezone-naive calendar day, held as UTC midnight so that
	// equality comparisons stay stable across the whole codebase.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Record is one ledger entry. Records are immutable after creation:
	// edits are modeled as Delete followed by Append.
	Record struct {
		ID        string
		Date      Date
		Category  string
		Amount    Money // always positive, see Validate
		Type      EntryType
		Note      string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidType        = errors.New("invalid entry type")
	ErrRecordNotFound     = errors.New("record not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrBalanceConflict    = errors.New("balance update conflict")
)

// SuggestedCategories is offered to the UI as a starting point. Categories
// on records are free-form; nothing enforces membership in this list.
var SuggestedCategories = []string{
	"Food", "Transport", "Household", "Entertainment", "Education", "Salary", "Other",
}

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

// Signed applies the type's sign to a positive amount.
func (t EntryType) Signed(m Money) Money {
	if t == Expense {
		return Money{Cents: -m.Cents}
	}
	return Money{Cents: m.Cents}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateFrom truncates an arbitrary timestamp to its UTC calendar day.
func DateFrom(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Signed returns the record's amount with the sign implied by its type.
func (r Record) Signed() Money {
	return r.Type.Signed(r.Amount)
}

// Validate checks the invariants every stored record must hold. It never
// touches storage; callers reject invalid input before any remote call.
func (r Record) Validate() error {
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

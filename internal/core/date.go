package core

import (
	"time"
)

// DateSource reports which rung of the resolution chain produced a date.
type DateSource int

const (
	// SourceProvided means a structured date was supplied directly.
	SourceProvided DateSource = iota
	// SourceParsed means a YYYY-MM-DD string was parsed.
	SourceParsed
	// SourceCreatedAt means the record's creation timestamp was used.
	SourceCreatedAt
	// SourceClock means nothing usable arrived and the current date was
	// substituted. Low confidence: callers should log a warning.
	SourceClock
)

func (s DateSource) String() string {
	switch s {
	case SourceProvided:
		return "provided"
	case SourceParsed:
		return "parsed"
	case SourceCreatedAt:
		return "created_at"
	case SourceClock:
		return "clock"
	default:
		return "unknown"
	}
}

// LowConfidence is true when the resolved date is a guess rather than
// something derived from caller input or the record itself.
func (s DateSource) LowConfidence() bool {
	return s == SourceClock
}

type dateInputKind int

const (
	dateAbsent dateInputKind = iota
	dateStructured
	dateRaw
)

// DateInput is the tagged variant for a record's incoming date. Upstream
// callers hand over whatever they have: a real timestamp, a raw string, or
// nothing at all. Resolve collapses it into a canonical calendar day exactly
// once, at the boundary, so no type sniffing leaks into call sites.
type DateInput struct {
	kind dateInputKind
	t    time.Time
	raw  string
}

// DateOf wraps a structured date-like value.
func DateOf(t time.Time) DateInput {
	return DateInput{kind: dateStructured, t: t}
}

// DateString wraps a raw string that may or may not be a YYYY-MM-DD date.
func DateString(s string) DateInput {
	return DateInput{kind: dateRaw, raw: s}
}

// NoDate marks the date as absent.
func NoDate() DateInput {
	return DateInput{kind: dateAbsent}
}

// Resolve normalizes the input into a calendar day. First match wins:
//
//  1. structured value, truncated to its calendar day
//  2. raw string parsed as YYYY-MM-DD
//  3. the record's created_at calendar day
//  4. today, per the supplied clock
//
// The returned DateSource tells the caller which rung fired; SourceClock is
// the fallback the caller must be warned about (non-fatal).
func (in DateInput) Resolve(createdAt time.Time, now func() time.Time) (Date, DateSource) {
	switch in.kind {
	case dateStructured:
		if !in.t.IsZero() {
			return DateFrom(in.t), SourceProvided
		}
	case dateRaw:
		if t, err := time.Parse("2006-01-02", in.raw); err == nil {
			return DateFrom(t), SourceParsed
		}
	}
	if !createdAt.IsZero() {
		return DateFrom(createdAt), SourceCreatedAt
	}
	if now == nil {
		now = time.Now
	}
	return DateFrom(now()), SourceClock
}

// Package ledger maintains the per-date attendance records. Every record
// carries a denormalized snapshot of the student profile so deleting a
// student never alters history.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateFormat is the calendar-day key format used throughout the ledger.
const DateFormat = "2006-01-02"

// ErrInvalidDate reports a date outside the YYYY-MM-DD format.
var ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

// Record is a single entry/exit pair for a student on a date. A zero
// ExitTime means the record is open (the student is present).
type Record struct {
	StudentID  int64     `json:"student_id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	Department string    `json:"department"`
	Date       string    `json:"date"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time,omitzero"`
	Confidence float64   `json:"confidence"`
}

// Open reports whether the record has no exit yet.
func (r Record) Open() bool {
	return r.ExitTime.IsZero()
}

// LastEvent returns the most recent timestamp on the record, used for
// the cooldown computation.
func (r Record) LastEvent() time.Time {
	if !r.ExitTime.IsZero() {
		return r.ExitTime
	}
	return r.EntryTime
}

// Summary aggregates a single date of the ledger.
type Summary struct {
	Date         string   `json:"date"`
	TotalEntries int      `json:"total_entries"`
	TotalExits   int      `json:"total_exits"`
	PresentCount int      `json:"present_count"`
	Present      []string `json:"present"`
}

// Store is the persistence contract for attendance records. Mutations
// commit atomically; concurrent callers observe pre- or post-state,
// never a partial write.
type Store interface {
	RecordsFor(ctx context.Context, date string) ([]Record, error)
	AppendRecord(ctx context.Context, date string, rec Record) error
	// CloseOpenRecord sets the exit time on the latest open record of the
	// student for the date. Returns false when no open record exists.
	CloseOpenRecord(ctx context.Context, date string, studentID int64, exit time.Time) (bool, error)
	ActiveDate(ctx context.Context) (string, error)
	SetActiveDate(ctx context.Context, date string) error
}

// Ledger exposes attendance operations over a store. The decision engine
// serializes its read-decide-write cycle; the ledger itself only
// validates dates and aggregates.
type Ledger struct {
	store Store
}

// New creates a ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// ValidateDate checks the YYYY-MM-DD format shared by all ledger calls.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateFormat, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// LatestRecord returns the most recent record for the student on the
// date, or ok=false if none exists.
func (l *Ledger) LatestRecord(ctx context.Context, date string, studentID int64) (Record, bool, error) {
	records, err := l.store.RecordsFor(ctx, date)
	if err != nil {
		return Record{}, false, fmt.Errorf("reading records: %w", err)
	}

	for i := len(records) - 1; i >= 0; i-- {
		if records[i].StudentID == studentID {
			return records[i], true, nil
		}
	}
	return Record{}, false, nil
}

// Append adds a new open record for the date.
func (l *Ledger) Append(ctx context.Context, date string, rec Record) error {
	if err := ValidateDate(date); err != nil {
		return err
	}
	rec.Date = date
	if err := l.store.AppendRecord(ctx, date, rec); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	return nil
}

// CloseOpen closes the student's open record for the date.
func (l *Ledger) CloseOpen(ctx context.Context, date string, studentID int64, exit time.Time) (bool, error) {
	if err := ValidateDate(date); err != nil {
		return false, err
	}
	closed, err := l.store.CloseOpenRecord(ctx, date, studentID, exit)
	if err != nil {
		return false, fmt.Errorf("closing record: %w", err)
	}
	return closed, nil
}

// RecordsFor returns all records for the date in insertion order.
func (l *Ledger) RecordsFor(ctx context.Context, date string) ([]Record, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	records, err := l.store.RecordsFor(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}

// Summarize aggregates the date: total entries, total exits, and the
// sorted names of students whose latest record is still open.
func (l *Ledger) Summarize(ctx context.Context, date string) (Summary, error) {
	records, err := l.RecordsFor(ctx, date)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Date: date, Present: []string{}}
	present := make(map[string]bool)
	for _, rec := range records {
		summary.TotalEntries++
		if rec.Open() {
			present[rec.Name] = true
		} else {
			summary.TotalExits++
			delete(present, rec.Name)
		}
	}

	for name := range present {
		summary.Present = append(summary.Present, name)
	}
	sort.Strings(summary.Present)
	summary.PresentCount = len(summary.Present)
	return summary, nil
}

// ActiveDate returns the stored active date, falling back to today's
// UTC date when none was ever set. The fallback happens here at the
// boundary; the decision engine always receives an explicit date.
func (l *Ledger) ActiveDate(ctx context.Context) (string, error) {
	date, err := l.store.ActiveDate(ctx)
	if err != nil {
		return "", fmt.Errorf("reading active date: %w", err)
	}
	if date == "" {
		return time.Now().UTC().Format(DateFormat), nil
	}
	return date, nil
}

// SetActiveDate switches the date used when callers omit one.
func (l *Ledger) SetActiveDate(ctx context.Context, date string) error {
	if err := ValidateDate(date); err != nil {
		return err
	}
	if err := l.store.SetActiveDate(ctx, date); err != nil {
		return fmt.Errorf("setting active date: %w", err)
	}
	return nil
}

package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Once      RecurrencePattern = "once"
	Daily     RecurrencePattern = "daily"
	Weekly    RecurrencePattern = "weekly"
	Monthly   RecurrencePattern = "monthly"
	Quarterly RecurrencePattern = "quarterly"
	Yearly    RecurrencePattern = "yearly"
)

const (
	Expense EntryKind = "expense"
	Income  EntryKind = "income"
)

// DateLayout is the canonical wire and storage format for dates.
const DateLayout = "2006-01-02"

type (
	// RecurrencePattern says how often a commitment recurs.
	RecurrencePattern string

	// EntryKind distinguishes money leaving from money arriving.
	EntryKind string

	// Date is a calendar day. The time-of-day portion is always UTC midnight;
	// the zero value means "unset".
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Commitment is a recurring (or one-time) planned transaction that has not
	// been realized yet. It is owned exclusively by its creating user and is
	// mutated only by the execution engine and by explicit owner edits.
	Commitment struct {
		ID               int64
		OwnerID          string
		Description      string
		Category         string
		Kind             EntryKind
		Amount           Money // positive magnitude; sign comes from Kind
		NextDueDate      Date  // next occurrence to execute; cleared when terminal
		LastExecutedDate Date  // most recent materialized occurrence, zero if never
		Pattern          RecurrencePattern
		Interval         int  // every N pattern units, >= 1
		EndDate          Date // optional; no occurrence may be scheduled after it
		IsActive         bool
	}

	// LedgerEntry is an immutable record of money movement. Entries created by
	// the engine carry the originating CommitmentID; manual entries carry zero.
	LedgerEntry struct {
		ID           int64
		OwnerID      string
		Description  string
		Category     string
		Kind         EntryKind
		Amount       Money // positive magnitude; sign comes from Kind
		Date         Date
		CommitmentID int64
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidKind        = errors.New("invalid entry kind")
	ErrInvalidPattern     = errors.New("invalid recurrence pattern")
	ErrInvalidInterval    = errors.New("recurrence interval must be at least 1")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyOwner         = errors.New("empty owner id")
	ErrMissingDueDate     = errors.New("recurring commitment requires a due date")
	ErrEndBeforeDue       = errors.New("end date must not be before the due date")
	ErrCommitmentNotFound = errors.New("commitment not found")
)

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Truncate normalizes an arbitrary instant to its UTC calendar day.
func Truncate(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// IsEmpty reports whether the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AfterDate reports whether d falls on a later calendar day than other.
func (d Date) AfterDate(other Date) bool {
	return d.Time.After(other.Time)
}

// SameDay reports whether two dates fall on the same calendar day.
func (d Date) SameDay(other Date) bool {
	return d.Time.Equal(other.Time)
}

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	return k == Expense || k == Income
}

// Sign returns +1 for income and -1 for expense. Unknown kinds count as
// expenses so a misconfigured entry never inflates a balance.
func (k EntryKind) Sign() int64 {
	if k == Income {
		return 1
	}
	return -1
}

// Valid reports whether p is a known recurrence pattern.
func (p RecurrencePattern) Valid() bool {
	switch p {
	case Once, Daily, Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Signed returns the entry's cents with the sign implied by its kind.
func (e LedgerEntry) Signed() int64 {
	return e.Kind.Sign() * e.Amount.Cents
}

// Signed returns the commitment's cents with the sign implied by its kind.
func (c Commitment) Signed() int64 {
	return c.Kind.Sign() * c.Amount.Cents
}

// Validate checks the structural rules for a commitment. The
// strictly-in-the-future rule for NextDueDate depends on "now" and is enforced
// by the service layer, not here.
func (c Commitment) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if len(strings.TrimSpace(c.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(c.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(c.Category) == "" {
		return ErrEmptyCategory
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	if !c.Pattern.Valid() {
		return ErrInvalidPattern
	}
	if c.Interval < 1 {
		return ErrInvalidInterval
	}
	if c.NextDueDate.IsEmpty() {
		return ErrMissingDueDate
	}
	if !c.EndDate.IsEmpty() && c.EndDate.Before(c.NextDueDate.Time) {
		return ErrEndBeforeDue
	}
	return nil
}

// Validate checks the structural rules for a ledger entry.
func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Date.IsEmpty() {
		return ErrInvalidDate
	}
	return nil
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies an entry as money in or money out.
type EntryKind string

const (
	KindIncome  EntryKind = "income"
	KindExpense EntryKind = "expense"
)

// IsValid checks if the kind is a known entry kind.
func (k EntryKind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// EntryStatus is the persisted payment status of an entry. Overdue is
// derived at read time and never stored.
type EntryStatus string

const (
	StatusPending  EntryStatus = "pending"
	StatusPaid     EntryStatus = "paid"
	StatusCanceled EntryStatus = "canceled"
)

// IsValid checks if the status is a known entry status.
func (s EntryStatus) IsValid() bool {
	return s == StatusPending || s == StatusPaid || s == StatusCanceled
}

// Entry represents a single ledger entry (a "lançamento"): one income or
// expense, optionally a member of a recurring/installment series.
type Entry struct {
	ID               string
	Description      string
	Amount           decimal.Decimal
	DueDate          time.Time
	PaidDate         *time.Time
	Kind             EntryKind
	Status           EntryStatus
	Notes            string
	IsRecurring      bool
	Recurrence       RecurrenceKind
	InstallmentCount int
	InstallmentIndex int
	ParentID         string
	CategoryID       string
	AccountID        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Deleted          bool
}

// IsSeriesRoot reports whether the entry is the originating member of a
// generated series.
func (e *Entry) IsSeriesRoot() bool {
	return e.IsRecurring && e.ParentID == ""
}

// IsSeriesMember reports whether the entry belongs to a generated series,
// root included.
func (e *Entry) IsSeriesMember() bool {
	return e.IsRecurring || e.ParentID != ""
}

// IsOverdue reports whether the entry is past due while still pending.
// Overdue is a read-time predicate, not a stored status.
func (e *Entry) IsOverdue(now time.Time) bool {
	return e.Status == StatusPending && e.DueDate.Before(now)
}

// MarkPaid transitions the entry from Pending to Paid. Overdue entries are
// Pending and therefore payable.
func (e *Entry) MarkPaid(paidAt time.Time) error {
	if e.Status != StatusPending {
		return ErrInvalidTransition
	}

	e.Status = StatusPaid
	e.PaidDate = &paidAt

	return nil
}

// MarkPending undoes a payment, returning the entry from Paid to Pending
// and clearing the paid date.
func (e *Entry) MarkPending() error {
	if e.Status != StatusPaid {
		return ErrInvalidTransition
	}

	e.Status = StatusPending
	e.PaidDate = nil

	return nil
}

// Cancel transitions the entry to the terminal Canceled state. Canceling an
// already-canceled entry is rejected: the terminal state has no self-loop.
func (e *Entry) Cancel() error {
	if e.Status == StatusCanceled {
		return ErrInvalidTransition
	}

	e.Status = StatusCanceled

	return nil
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidDescription = errors.New("invalid description")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidNotes       = errors.New("invalid notes")
	ErrInvalidKind        = errors.New("invalid entry kind")
	ErrInvalidPeriod      = errors.New("invalid period")
)

// Validation constants
const (
	MaxDescriptionLength = 200
	MaxNotesLength       = 1000
)

// ValidateDescription validates an entry description.
func ValidateDescription(description string) error {
	description = strings.TrimSpace(description)

	if description == "" {
		return fmt.Errorf("%w: description cannot be empty", ErrInvalidDescription)
	}

	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}

	return nil
}

// ValidateAmount validates an entry amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return nil
}

// ValidateNotes validates optional entry notes.
func ValidateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", ErrInvalidNotes, MaxNotesLength)
	}

	return nil
}

// ValidateKind validates an entry kind.
func ValidateKind(kind EntryKind) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	return nil
}

// ValidatePeriod validates an inclusive date range.
func ValidatePeriod(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: both bounds are required", ErrInvalidPeriod)
	}

	if to.Before(from) {
		return fmt.Errorf("%w: range end precedes start", ErrInvalidPeriod)
	}

	return nil
}

// ValidatePagination limits pagination parameters to sane bounds.
func ValidatePagination(limit, offset int) (int, int) {
	const maxPageSize = 200
	const defaultPageSize = 50

	if limit <= 0 {
		limit = defaultPageSize
	}

	if limit > maxPageSize {
		limit = maxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

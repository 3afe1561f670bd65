package domain

import (
	"fmt"
	"time"
)

// RecurrenceKind is the rule used to generate a series of due dates.
type RecurrenceKind string

const (
	RecurrenceNone    RecurrenceKind = "none"
	RecurrenceDaily   RecurrenceKind = "daily"
	RecurrenceWeekly  RecurrenceKind = "weekly"
	RecurrenceMonthly RecurrenceKind = "monthly"
	RecurrenceYearly  RecurrenceKind = "yearly"
)

// IsValid checks if the kind is a known recurrence kind.
func (k RecurrenceKind) IsValid() bool {
	switch k {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// ExpandSchedule expands a recurrence rule into count due dates, the first
// being the anchor. The sequence is strictly increasing and each date is
// derived from the anchor, so a monthly clamp in one month never cascades
// into the next.
func ExpandSchedule(anchor time.Time, kind RecurrenceKind, count int) ([]time.Time, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: occurrence count must be at least 1", ErrInvalidRecurrence)
	}

	anchor = DateOnly(anchor)

	dates := make([]time.Time, count)
	for i := 0; i < count; i++ {
		switch kind {
		case RecurrenceDaily:
			dates[i] = anchor.AddDate(0, 0, i)
		case RecurrenceWeekly:
			dates[i] = anchor.AddDate(0, 0, 7*i)
		case RecurrenceMonthly:
			dates[i] = addMonthsClamped(anchor, i)
		case RecurrenceYearly:
			dates[i] = addYearsClamped(anchor, i)
		default:
			return nil, fmt.Errorf("%w: cannot expand recurrence kind %q", ErrInvalidRecurrence, kind)
		}
	}

	return dates, nil
}

// ValidateRecurrence enforces the recurrence invariants of an entry:
// recurring entries carry a concrete kind, non-recurring entries carry
// none, and installment numbering stays within the series size.
func ValidateRecurrence(isRecurring bool, kind RecurrenceKind, count, index int) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown recurrence kind %q", ErrInvalidRecurrence, kind)
	}

	if isRecurring && kind == RecurrenceNone {
		return fmt.Errorf("%w: recurring entry requires a recurrence kind", ErrInvalidRecurrence)
	}

	if !isRecurring && kind != RecurrenceNone {
		return fmt.Errorf("%w: non-recurring entry cannot carry recurrence kind %q", ErrInvalidRecurrence, kind)
	}

	if count < 0 || index < 0 {
		return fmt.Errorf("%w: installment numbering must be positive", ErrInvalidRecurrence)
	}

	if count > 0 && index > count {
		return fmt.Errorf("%w: installment index %d exceeds count %d", ErrInvalidRecurrence, index, count)
	}

	return nil
}

// DateOnly truncates a timestamp to midnight in its location. Due and paid
// dates are calendar dates.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// addMonthsClamped advances the anchor by n calendar months, keeping the
// anchor's day-of-month clamped to the target month's last valid day.
// time.AddDate would normalize Jan 31 + 1 month into Mar 3.
func addMonthsClamped(anchor time.Time, n int) time.Time {
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	target := first.AddDate(0, n, 0)

	day := anchor.Day()
	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}

	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, anchor.Location())
}

// addYearsClamped advances the anchor by n years keeping month and day,
// with Feb 29 clamped to Feb 28 on non-leap years.
func addYearsClamped(anchor time.Time, n int) time.Time {
	year := anchor.Year() + n

	day := anchor.Day()
	if last := daysIn(year, anchor.Month()); day > last {
		day = last
	}

	return time.Date(year, anchor.Month(), day, 0, 0, 0, 0, anchor.Location())
}

func daysIn(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

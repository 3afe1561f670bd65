package domain

import "errors"

var (
	// Entry errors
	ErrEntryNotFound       = errors.New("entry not found")
	ErrSeriesNotFound      = errors.New("series not found")
	ErrInvalidTransition   = errors.New("invalid payment status transition")
	ErrConcurrencyConflict = errors.New("entry was modified concurrently")

	// Recurrence errors
	ErrInvalidRecurrence = errors.New("invalid recurrence configuration")

	// Access errors
	ErrUnauthorized     = errors.New("account not authorized for caller")
	ErrAccountNotFound  = errors.New("account not found")
	ErrCategoryNotFound = errors.New("category not found")
)

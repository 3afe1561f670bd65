package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/usecase"
)

// CreateEntryRequest represents a request to create a single entry.
type CreateEntryRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	Kind        string          `json:"kind"`
	Notes       string          `json:"notes,omitempty"`
	CategoryID  string          `json:"category_id"`
	AccountID   string          `json:"account_id"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput(callerID string) usecase.CreateEntryInput {
	return usecase.CreateEntryInput{
		CallerID:    callerID,
		Description: r.Description,
		Amount:      r.Amount,
		DueDate:     r.DueDate,
		Kind:        domain.EntryKind(r.Kind),
		Notes:       r.Notes,
		CategoryID:  r.CategoryID,
		AccountID:   r.AccountID,
	}
}

// UpdateEntryRequest represents a request to edit a single entry.
// ExpectedUpdatedAt is the concurrency token last seen by the client.
type UpdateEntryRequest struct {
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	DueDate           time.Time       `json:"due_date"`
	Notes             string          `json:"notes,omitempty"`
	CategoryID        string          `json:"category_id"`
	AccountID         string          `json:"account_id"`
	ExpectedUpdatedAt time.Time       `json:"expected_updated_at"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateEntryRequest) ToUseCaseInput(callerID, entryID string) usecase.UpdateEntryInput {
	return usecase.UpdateEntryInput{
		CallerID:          callerID,
		EntryID:           entryID,
		Description:       r.Description,
		Amount:            r.Amount,
		DueDate:           r.DueDate,
		Notes:             r.Notes,
		CategoryID:        r.CategoryID,
		AccountID:         r.AccountID,
		ExpectedUpdatedAt: r.ExpectedUpdatedAt,
	}
}

// MarkPaidRequest represents a request to mark an entry paid. PaidDate
// defaults to the current day when omitted.
type MarkPaidRequest struct {
	PaidDate          *time.Time `json:"paid_date,omitempty"`
	ExpectedUpdatedAt time.Time  `json:"expected_updated_at"`
}

// ToUseCaseInput converts to use case input.
func (r *MarkPaidRequest) ToUseCaseInput(callerID, entryID string) usecase.MarkPaidInput {
	return usecase.MarkPaidInput{
		CallerID:          callerID,
		EntryID:           entryID,
		PaidDate:          r.PaidDate,
		ExpectedUpdatedAt: r.ExpectedUpdatedAt,
	}
}

// TransitionRequest represents a request for a lifecycle transition or a
// deletion.
type TransitionRequest struct {
	ExpectedUpdatedAt time.Time `json:"expected_updated_at"`
}

// ToUseCaseInput converts to use case input.
func (r *TransitionRequest) ToUseCaseInput(callerID, entryID string) usecase.TransitionInput {
	return usecase.TransitionInput{
		CallerID:          callerID,
		EntryID:           entryID,
		ExpectedUpdatedAt: r.ExpectedUpdatedAt,
	}
}

// CreateSeriesRequest represents a request to create a recurring or
// installment series. Amount is the per-occurrence amount.
type CreateSeriesRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	FirstDue    time.Time       `json:"first_due"`
	Kind        string          `json:"kind"`
	Recurrence  string          `json:"recurrence"`
	Occurrences int             `json:"occurrences"`
	Notes       string          `json:"notes,omitempty"`
	CategoryID  string          `json:"category_id"`
	AccountID   string          `json:"account_id"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateSeriesRequest) ToUseCaseInput(callerID string) usecase.CreateSeriesInput {
	return usecase.CreateSeriesInput{
		CallerID:    callerID,
		Description: r.Description,
		Amount:      r.Amount,
		FirstDue:    r.FirstDue,
		Kind:        domain.EntryKind(r.Kind),
		Recurrence:  domain.RecurrenceKind(r.Recurrence),
		Occurrences: r.Occurrences,
		Notes:       r.Notes,
		CategoryID:  r.CategoryID,
		AccountID:   r.AccountID,
	}
}

// UpdateSeriesRequest represents an edit applied from one series member
// forward. Omitted fields are left untouched.
type UpdateSeriesRequest struct {
	Description       *string          `json:"description,omitempty"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	CategoryID        *string          `json:"category_id,omitempty"`
	AccountID         *string          `json:"account_id,omitempty"`
	Recurrence        *string          `json:"recurrence,omitempty"`
	InstallmentCount  *int             `json:"installment_count,omitempty"`
	ExpectedUpdatedAt time.Time        `json:"expected_updated_at"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateSeriesRequest) ToUseCaseInput(callerID, memberID string) usecase.UpdateSeriesInput {
	input := usecase.UpdateSeriesInput{
		CallerID:          callerID,
		MemberID:          memberID,
		Description:       r.Description,
		Amount:            r.Amount,
		Notes:             r.Notes,
		CategoryID:        r.CategoryID,
		AccountID:         r.AccountID,
		InstallmentCount:  r.InstallmentCount,
		ExpectedUpdatedAt: r.ExpectedUpdatedAt,
	}

	if r.Recurrence != nil {
		kind := domain.RecurrenceKind(*r.Recurrence)
		input.Recurrence = &kind
	}

	return input
}

// GenerateOccurrencesRequest represents a request to extend a series.
type GenerateOccurrencesRequest struct {
	Count int `json:"count"`
}

// ToUseCaseInput converts to use case input.
func (r *GenerateOccurrencesRequest) ToUseCaseInput(callerID, seriesID string) usecase.GenerateOccurrencesInput {
	return usecase.GenerateOccurrencesInput{
		CallerID: callerID,
		SeriesID: seriesID,
		Count:    r.Count,
	}
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincasa/fincasa/internal/domain"
)

// EntryResponse represents an entry in API responses. Overdue is derived
// from the due date at render time, never stored.
type EntryResponse struct {
	ID               string          `json:"id"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          string          `json:"due_date"`
	PaidDate         string          `json:"paid_date,omitempty"`
	Kind             string          `json:"kind"`
	Status           string          `json:"status"`
	Overdue          bool            `json:"overdue"`
	Notes            string          `json:"notes,omitempty"`
	IsRecurring      bool            `json:"is_recurring"`
	Recurrence       string          `json:"recurrence"`
	InstallmentCount int             `json:"installment_count,omitempty"`
	InstallmentIndex int             `json:"installment_index,omitempty"`
	ParentID         string          `json:"parent_id,omitempty"`
	CategoryID       string          `json:"category_id"`
	AccountID        string          `json:"account_id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// EntryFromDomain converts a domain entry to a response. now scopes the
// overdue derivation.
func EntryFromDomain(e *domain.Entry, now time.Time) *EntryResponse {
	resp := &EntryResponse{
		ID:               e.ID,
		Description:      e.Description,
		Amount:           e.Amount,
		DueDate:          e.DueDate.Format(time.DateOnly),
		Kind:             string(e.Kind),
		Status:           string(e.Status),
		Overdue:          e.IsOverdue(now),
		Notes:            e.Notes,
		IsRecurring:      e.IsRecurring,
		Recurrence:       string(e.Recurrence),
		InstallmentCount: e.InstallmentCount,
		InstallmentIndex: e.InstallmentIndex,
		ParentID:         e.ParentID,
		CategoryID:       e.CategoryID,
		AccountID:        e.AccountID,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}

	if e.PaidDate != nil {
		resp.PaidDate = e.PaidDate.Format(time.DateOnly)
	}

	return resp
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry, now time.Time) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e, now)
	}
	return result
}

// ListEntriesResponse wraps a list of entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Total   int64            `json:"total"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

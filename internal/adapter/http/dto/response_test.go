package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincasa/fincasa/internal/domain"
)

func sampleEntry() *domain.Entry {
	return &domain.Entry{
		ID:          "ent-1",
		Description: "Electricity bill",
		Amount:      decimal.RequireFromString("120.50"),
		DueDate:     time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Kind:        domain.KindExpense,
		Status:      domain.StatusPending,
		Recurrence:  domain.RecurrenceNone,
		CategoryID:  "cat-1",
		AccountID:   "acc-1",
		CreatedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestEntryFromDomainFormatsDates(t *testing.T) {
	e := sampleEntry()
	paid := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	e.Status = domain.StatusPaid
	e.PaidDate = &paid

	resp := EntryFromDomain(e, time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, "2025-03-20", resp.DueDate)
	assert.Equal(t, "2025-03-18", resp.PaidDate)
	assert.Equal(t, "paid", resp.Status)
}

func TestEntryFromDomainOmitsPaidDateWhenUnpaid(t *testing.T) {
	resp := EntryFromDomain(sampleEntry(), time.Date(2025, 3, 19, 12, 0, 0, 0, time.UTC))

	assert.Empty(t, resp.PaidDate)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "paid_date")
}

func TestEntryFromDomainDerivesOverdue(t *testing.T) {
	e := sampleEntry()
	now := time.Date(2025, 3, 25, 12, 0, 0, 0, time.UTC)

	resp := EntryFromDomain(e, now)
	assert.True(t, resp.Overdue, "pending entry past due date is overdue")

	paid := time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC)
	e.Status = domain.StatusPaid
	e.PaidDate = &paid

	resp = EntryFromDomain(e, now)
	assert.False(t, resp.Overdue, "paid entry is never overdue")
}

func TestEntryFromDomainSeriesFields(t *testing.T) {
	e := sampleEntry()
	e.ID = "ser-2"
	e.Recurrence = domain.RecurrenceMonthly
	e.InstallmentCount = 12
	e.InstallmentIndex = 2
	e.ParentID = "ser-1"

	resp := EntryFromDomain(e, time.Now().UTC())

	assert.Equal(t, "monthly", resp.Recurrence)
	assert.Equal(t, 12, resp.InstallmentCount)
	assert.Equal(t, 2, resp.InstallmentIndex)
	assert.Equal(t, "ser-1", resp.ParentID)
}

func TestEntriesFromDomainPreservesOrder(t *testing.T) {
	first := sampleEntry()
	second := sampleEntry()
	second.ID = "ent-2"

	resps := EntriesFromDomain([]*domain.Entry{first, second}, time.Now().UTC())

	require.Len(t, resps, 2)
	assert.Equal(t, "ent-1", resps[0].ID)
	assert.Equal(t, "ent-2", resps[1].ID)
}

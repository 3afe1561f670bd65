package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/usecase"
	"github.com/fincasa/fincasa/internal/usecase/mocks"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type entryFixture struct {
	uc        *usecase.EntryUseCase
	repo      *mocks.MockEntryRepository
	txManager *mocks.MockTxManager
	clock     *mocks.MockClock
	gate      *mocks.MockAccessGate
}

func newEntryFixture() *entryFixture {
	repo := mocks.NewMockEntryRepository()
	txManager := mocks.NewMockTxManager()
	clock := mocks.NewMockClock(testNow)
	gate := mocks.NewMockAccessGate(map[string][]string{
		"user-1": {"acc-1", "acc-2"},
		"user-2": {"acc-9"},
	})

	uc := usecase.NewEntryUseCase(
		txManager,
		repo,
		gate,
		mocks.NewMockDirectory(),
		mocks.NewMockDirectory(),
		mocks.NewMockIDGenerator(),
		clock,
		nil,
	)

	return &entryFixture{uc: uc, repo: repo, txManager: txManager, clock: clock, gate: gate}
}

func seedPending(repo *mocks.MockEntryRepository, id, accountID string, due time.Time) *domain.Entry {
	entry := &domain.Entry{
		ID:          id,
		Description: "Electricity bill",
		Amount:      decimal.NewFromInt(120),
		DueDate:     due,
		Kind:        domain.KindExpense,
		Status:      domain.StatusPending,
		CategoryID:  "cat-1",
		AccountID:   accountID,
		CreatedAt:   testNow.Add(-24 * time.Hour),
		UpdatedAt:   testNow.Add(-24 * time.Hour),
	}
	repo.Seed(entry)

	return entry
}

func TestEntryUseCase_CreateEntry(t *testing.T) {
	f := newEntryFixture()

	entry, err := f.uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
		CallerID:    "user-1",
		Description: "Rent",
		Amount:      decimal.NewFromInt(1500),
		DueDate:     time.Date(2025, 4, 1, 18, 30, 0, 0, time.UTC),
		Kind:        domain.KindExpense,
		CategoryID:  "cat-1",
		AccountID:   "acc-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Status != domain.StatusPending {
		t.Errorf("expected status pending, got %s", entry.Status)
	}

	wantDue := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	if !entry.DueDate.Equal(wantDue) {
		t.Errorf("expected due date normalized to %s, got %s", wantDue, entry.DueDate)
	}

	if stored := f.repo.Stored(entry.ID); stored == nil {
		t.Fatal("expected entry to be persisted")
	}

	if !f.txManager.LastTx.Committed {
		t.Error("expected transaction to be committed")
	}
}

func TestEntryUseCase_CreateEntry_UnauthorizedAccount(t *testing.T) {
	f := newEntryFixture()

	_, err := f.uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
		CallerID:    "user-2",
		Description: "Rent",
		Amount:      decimal.NewFromInt(1500),
		DueDate:     testNow,
		Kind:        domain.KindExpense,
		CategoryID:  "cat-1",
		AccountID:   "acc-1",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEntryUseCase_CreateEntry_UnknownCategory(t *testing.T) {
	repo := mocks.NewMockEntryRepository()
	uc := usecase.NewEntryUseCase(
		mocks.NewMockTxManager(),
		repo,
		mocks.NewMockAccessGate(map[string][]string{"user-1": {"acc-1"}}),
		mocks.NewMockDirectory(),
		mocks.NewMockDirectory("cat-missing"),
		mocks.NewMockIDGenerator(),
		mocks.NewMockClock(testNow),
		nil,
	)

	_, err := uc.CreateEntry(context.Background(), usecase.CreateEntryInput{
		CallerID:    "user-1",
		Description: "Rent",
		Amount:      decimal.NewFromInt(1500),
		DueDate:     testNow,
		Kind:        domain.KindExpense,
		CategoryID:  "cat-missing",
		AccountID:   "acc-1",
	})
	if !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestEntryUseCase_MarkPaid_ThenUndo(t *testing.T) {
	f := newEntryFixture()
	seeded := seedPending(f.repo, "e1", "acc-1", testNow)

	paid, err := f.uc.MarkPaid(context.Background(), usecase.MarkPaidInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: seeded.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if paid.Status != domain.StatusPaid {
		t.Errorf("expected status paid, got %s", paid.Status)
	}

	wantPaidAt := domain.DateOnly(testNow)
	if paid.PaidDate == nil || !paid.PaidDate.Equal(wantPaidAt) {
		t.Errorf("expected paid date %s, got %v", wantPaidAt, paid.PaidDate)
	}

	reverted, err := f.uc.MarkPending(context.Background(), usecase.TransitionInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: paid.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reverted.Status != domain.StatusPending {
		t.Errorf("expected status pending after undo, got %s", reverted.Status)
	}

	if reverted.PaidDate != nil {
		t.Errorf("expected paid date cleared, got %v", reverted.PaidDate)
	}
}

func TestEntryUseCase_MarkPaid_ExplicitDate(t *testing.T) {
	f := newEntryFixture()
	seeded := seedPending(f.repo, "e1", "acc-1", testNow)

	paidOn := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	paid, err := f.uc.MarkPaid(context.Background(), usecase.MarkPaidInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		PaidDate:          &paidOn,
		ExpectedUpdatedAt: seeded.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if paid.PaidDate == nil || !paid.PaidDate.Equal(want) {
		t.Errorf("expected paid date %s, got %v", want, paid.PaidDate)
	}
}

func TestEntryUseCase_MarkPaid_AlreadyPaid(t *testing.T) {
	f := newEntryFixture()
	seeded := seedPending(f.repo, "e1", "acc-1", testNow)

	paid, err := f.uc.MarkPaid(context.Background(), usecase.MarkPaidInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: seeded.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.uc.MarkPaid(context.Background(), usecase.MarkPaidInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: paid.UpdatedAt,
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestEntryUseCase_MarkPaid_StaleToken(t *testing.T) {
	f := newEntryFixture()
	seeded := seedPending(f.repo, "e1", "acc-1", testNow)
	staleToken := seeded.UpdatedAt

	// First writer wins.
	paid, err := f.uc.MarkPaid(context.Background(), usecase.MarkPaidInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: staleToken,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second writer undoes with the pre-payment token it last saw.
	_, err = f.uc.MarkPending(context.Background(), usecase.TransitionInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: staleToken,
	})
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}

	// The winner's write is intact.
	stored := f.repo.Stored("e1")
	if stored.Status != domain.StatusPaid {
		t.Errorf("expected stored status paid, got %s", stored.Status)
	}
	if !stored.UpdatedAt.Equal(paid.UpdatedAt) {
		t.Errorf("expected stored token %s, got %s", paid.UpdatedAt, stored.UpdatedAt)
	}
}

func TestEntryUseCase_Cancel_Terminal(t *testing.T) {
	f := newEntryFixture()
	seeded := seedPending(f.repo, "e1", "acc-1", testNow)

	canceled, err := f.uc.Cancel(context.Background(), usecase.TransitionInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: seeded.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.uc.Cancel(context.Background(), usecase.TransitionInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: canceled.UpdatedAt,
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on repeated cancel, got %v", err)
	}
}

func TestEntryUseCase_UpdateEntry(t *testing.T) {
	f := newEntryFixture()
	seeded := seedPending(f.repo, "e1", "acc-1", testNow)

	updated, err := f.uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		Description:       "Electricity bill (adjusted)",
		Amount:            decimal.NewFromInt(135),
		DueDate:           seeded.DueDate,
		CategoryID:        "cat-1",
		AccountID:         "acc-2",
		ExpectedUpdatedAt: seeded.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.AccountID != "acc-2" {
		t.Errorf("expected account acc-2, got %s", updated.AccountID)
	}

	stored := f.repo.Stored("e1")
	if !stored.Amount.Equal(decimal.NewFromInt(135)) {
		t.Errorf("expected stored amount 135, got %s", stored.Amount)
	}
}

func TestEntryUseCase_UpdateEntry_SettledIsImmutable(t *testing.T) {
	f := newEntryFixture()
	seeded := seedPending(f.repo, "e1", "acc-1", testNow)

	paid, err := f.uc.MarkPaid(context.Background(), usecase.MarkPaidInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: seeded.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		Description:       "Changed",
		Amount:            decimal.NewFromInt(1),
		DueDate:           testNow,
		CategoryID:        "cat-1",
		AccountID:         "acc-1",
		ExpectedUpdatedAt: paid.UpdatedAt,
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestEntryUseCase_DeleteEntry_Tombstones(t *testing.T) {
	f := newEntryFixture()
	seeded := seedPending(f.repo, "e1", "acc-1", testNow)

	err := f.uc.DeleteEntry(context.Background(), usecase.TransitionInput{
		CallerID:          "user-1",
		EntryID:           "e1",
		ExpectedUpdatedAt: seeded.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.repo.Stored("e1")
	if stored == nil || !stored.Deleted {
		t.Fatal("expected entry to be tombstoned, not removed")
	}

	_, err = f.uc.GetEntry(context.Background(), "user-1", "e1")
	if !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound after delete, got %v", err)
	}
}

func TestEntryUseCase_GetEntry_Unauthorized(t *testing.T) {
	f := newEntryFixture()
	seedPending(f.repo, "e1", "acc-1", testNow)

	_, err := f.uc.GetEntry(context.Background(), "user-2", "e1")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEntryUseCase_ListOverdue(t *testing.T) {
	f := newEntryFixture()

	overdue := seedPending(f.repo, "e-overdue", "acc-1", testNow.AddDate(0, 0, -5))
	seedPending(f.repo, "e-future", "acc-1", testNow.AddDate(0, 0, 5))
	settled := seedPending(f.repo, "e-paid", "acc-1", testNow.AddDate(0, 0, -10))
	seedPending(f.repo, "e-foreign", "acc-9", testNow.AddDate(0, 0, -5))

	if _, err := f.uc.MarkPaid(context.Background(), usecase.MarkPaidInput{
		CallerID:          "user-1",
		EntryID:           settled.ID,
		ExpectedUpdatedAt: settled.UpdatedAt,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := f.uc.ListOverdue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 overdue entry, got %d", len(entries))
	}

	if entries[0].ID != overdue.ID {
		t.Errorf("expected entry %s, got %s", overdue.ID, entries[0].ID)
	}
}

func TestEntryUseCase_ListByPeriod_EmptyAccessIsEmptyList(t *testing.T) {
	f := newEntryFixture()
	seedPending(f.repo, "e1", "acc-1", testNow)

	entries, err := f.uc.ListByPeriod(context.Background(), usecase.ListByPeriodInput{
		CallerID: "user-unknown",
		From:     testNow.AddDate(0, -1, 0),
		To:       testNow.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("expected empty list, got %d entries", len(entries))
	}
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/infrastructure/metrics"
)

// EntryUseCase handles single-entry business logic: creation, edits, the
// payment lifecycle, and the read-side listings.
type EntryUseCase struct {
	txManager  TransactionManager
	entryRepo  EntryRepository
	accessGate AccessGate
	accounts   AccountDirectory
	categories CategoryDirectory
	idGen      IDGenerator
	clock      Clock
	metrics    *metrics.Metrics
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	accessGate AccessGate,
	accounts AccountDirectory,
	categories CategoryDirectory,
	idGen IDGenerator,
	clock Clock,
	metrics *metrics.Metrics,
) *EntryUseCase {
	return &EntryUseCase{
		txManager:  txManager,
		entryRepo:  entryRepo,
		accessGate: accessGate,
		accounts:   accounts,
		categories: categories,
		idGen:      idGen,
		clock:      clock,
		metrics:    metrics,
	}
}

// CreateEntryInput represents input for creating a single entry.
type CreateEntryInput struct {
	CallerID    string
	Description string
	Amount      decimal.Decimal
	DueDate     time.Time
	Kind        domain.EntryKind
	Notes       string
	CategoryID  string
	AccountID   string
}

// CreateEntry creates a single non-recurring entry in Pending state.
func (uc *EntryUseCase) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.Entry, error) {
	if err := validateEntryFields(input.Description, input.Amount, input.Notes, input.Kind); err != nil {
		return nil, err
	}

	authorized, _, err := resolveAccess(ctx, uc.accessGate, input.CallerID)
	if err != nil {
		return nil, err
	}

	if err := requireAccount(authorized, input.AccountID); err != nil {
		return nil, err
	}

	if err := uc.checkReferences(ctx, input.CategoryID, input.AccountID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := uc.clock.Now().UTC()
	entry := &domain.Entry{
		ID:          uc.idGen.Generate(),
		Description: input.Description,
		Amount:      input.Amount,
		DueDate:     domain.DateOnly(input.DueDate),
		Kind:        input.Kind,
		Status:      domain.StatusPending,
		Notes:       input.Notes,
		Recurrence:  domain.RecurrenceNone,
		CategoryID:  input.CategoryID,
		AccountID:   input.AccountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.entryRepo.Create(txCtx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesCreated.WithLabelValues(string(entry.Kind)).Inc()
	}

	return entry, nil
}

// GetEntry retrieves an entry by ID, scoped to the caller's accounts.
func (uc *EntryUseCase) GetEntry(ctx context.Context, callerID, id string) (*domain.Entry, error) {
	entry, err := uc.entryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	authorized, _, err := resolveAccess(ctx, uc.accessGate, callerID)
	if err != nil {
		return nil, err
	}

	if err := requireAccount(authorized, entry.AccountID); err != nil {
		return nil, err
	}

	return entry, nil
}

// UpdateEntryInput represents input for editing a single entry. The caller
// must supply the entry's last-seen updated_at as the concurrency token.
type UpdateEntryInput struct {
	CallerID          string
	EntryID           string
	Description       string
	Amount            decimal.Decimal
	DueDate           time.Time
	Notes             string
	CategoryID        string
	AccountID         string
	ExpectedUpdatedAt time.Time
}

// UpdateEntry edits a single Pending entry. Settled and canceled entries
// are immutable.
func (uc *EntryUseCase) UpdateEntry(ctx context.Context, input UpdateEntryInput) (*domain.Entry, error) {
	if err := validateEntryFields(input.Description, input.Amount, input.Notes, ""); err != nil {
		return nil, err
	}

	authorized, _, err := resolveAccess(ctx, uc.accessGate, input.CallerID)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	entry, err := uc.entryRepo.GetByIDForUpdate(txCtx, tx, input.EntryID)
	if err != nil {
		return nil, err
	}

	if err := requireAccount(authorized, entry.AccountID); err != nil {
		return nil, err
	}

	if entry.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: only pending entries can be edited", domain.ErrInvalidTransition)
	}

	// Moving the entry to another account requires access to both sides.
	if input.AccountID != entry.AccountID {
		if err := requireAccount(authorized, input.AccountID); err != nil {
			return nil, err
		}
	}

	if err := uc.checkReferences(txCtx, input.CategoryID, input.AccountID); err != nil {
		return nil, err
	}

	entry.Description = input.Description
	entry.Amount = input.Amount
	entry.DueDate = domain.DateOnly(input.DueDate)
	entry.Notes = input.Notes
	entry.CategoryID = input.CategoryID
	entry.AccountID = input.AccountID
	entry.UpdatedAt = uc.clock.Now().UTC()

	if err := uc.entryRepo.Update(txCtx, tx, entry, input.ExpectedUpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return entry, nil
}

// TransitionInput represents input for a payment lifecycle transition.
type TransitionInput struct {
	CallerID          string
	EntryID           string
	ExpectedUpdatedAt time.Time
}

// MarkPaidInput represents input for marking an entry paid.
type MarkPaidInput struct {
	CallerID          string
	EntryID           string
	PaidDate          *time.Time
	ExpectedUpdatedAt time.Time
}

// MarkPaid transitions an entry from Pending to Paid. When no paid date is
// supplied, the injected clock's current day is used.
func (uc *EntryUseCase) MarkPaid(ctx context.Context, input MarkPaidInput) (*domain.Entry, error) {
	return uc.transition(ctx, input.CallerID, input.EntryID, input.ExpectedUpdatedAt, func(entry *domain.Entry) error {
		paidAt := domain.DateOnly(uc.clock.Now().UTC())
		if input.PaidDate != nil {
			paidAt = domain.DateOnly(*input.PaidDate)
		}

		if err := entry.MarkPaid(paidAt); err != nil {
			return err
		}

		if uc.metrics != nil {
			uc.metrics.EntriesPaid.Inc()
		}

		return nil
	})
}

// MarkPending undoes a payment, returning the entry to Pending.
func (uc *EntryUseCase) MarkPending(ctx context.Context, input TransitionInput) (*domain.Entry, error) {
	return uc.transition(ctx, input.CallerID, input.EntryID, input.ExpectedUpdatedAt, func(entry *domain.Entry) error {
		if err := entry.MarkPending(); err != nil {
			return err
		}

		if uc.metrics != nil {
			uc.metrics.EntriesReverted.Inc()
		}

		return nil
	})
}

// Cancel transitions an entry to the terminal Canceled state.
func (uc *EntryUseCase) Cancel(ctx context.Context, input TransitionInput) (*domain.Entry, error) {
	return uc.transition(ctx, input.CallerID, input.EntryID, input.ExpectedUpdatedAt, func(entry *domain.Entry) error {
		if err := entry.Cancel(); err != nil {
			return err
		}

		if uc.metrics != nil {
			uc.metrics.EntriesCanceled.Inc()
		}

		return nil
	})
}

// transition runs a single-row lifecycle write: lock, authorize, apply,
// compare-and-set on the supplied version token.
func (uc *EntryUseCase) transition(
	ctx context.Context,
	callerID, entryID string,
	expectedUpdatedAt time.Time,
	apply func(*domain.Entry) error,
) (*domain.Entry, error) {
	authorized, _, err := resolveAccess(ctx, uc.accessGate, callerID)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	entry, err := uc.entryRepo.GetByIDForUpdate(txCtx, tx, entryID)
	if err != nil {
		return nil, err
	}

	if err := requireAccount(authorized, entry.AccountID); err != nil {
		return nil, err
	}

	if err := apply(entry); err != nil {
		return nil, err
	}

	entry.UpdatedAt = uc.clock.Now().UTC()

	if err := uc.entryRepo.Update(txCtx, tx, entry, expectedUpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return entry, nil
}

// DeleteEntry tombstones an entry. The row is never physically removed, so
// historical aggregates and child linkage survive.
func (uc *EntryUseCase) DeleteEntry(ctx context.Context, input TransitionInput) error {
	authorized, _, err := resolveAccess(ctx, uc.accessGate, input.CallerID)
	if err != nil {
		return err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	entry, err := uc.entryRepo.GetByIDForUpdate(txCtx, tx, input.EntryID)
	if err != nil {
		return err
	}

	if err := requireAccount(authorized, entry.AccountID); err != nil {
		return err
	}

	if err := uc.entryRepo.SoftDelete(txCtx, tx, entry.ID, uc.clock.Now().UTC()); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesDeleted.Inc()
	}

	return nil
}

// ListByPeriodInput represents input for listing entries in a date range.
type ListByPeriodInput struct {
	CallerID string
	From     time.Time
	To       time.Time
}

// ListByPeriod lists the caller's entries due inside [from, to].
func (uc *EntryUseCase) ListByPeriod(ctx context.Context, input ListByPeriodInput) ([]*domain.Entry, error) {
	if err := domain.ValidatePeriod(input.From, input.To); err != nil {
		return nil, err
	}

	_, accountIDs, err := resolveAccess(ctx, uc.accessGate, input.CallerID)
	if err != nil {
		return nil, err
	}

	if len(accountIDs) == 0 {
		return []*domain.Entry{}, nil
	}

	return uc.entryRepo.ListByPeriod(ctx, accountIDs, domain.DateOnly(input.From), domain.DateOnly(input.To))
}

// ListByCategoryInput represents input for listing entries of a category.
type ListByCategoryInput struct {
	CallerID   string
	CategoryID string
	Limit      int
	Offset     int
}

// ListByCategory lists the caller's entries for one category.
func (uc *EntryUseCase) ListByCategory(ctx context.Context, input ListByCategoryInput) ([]*domain.Entry, error) {
	_, accountIDs, err := resolveAccess(ctx, uc.accessGate, input.CallerID)
	if err != nil {
		return nil, err
	}

	if len(accountIDs) == 0 {
		return []*domain.Entry{}, nil
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.entryRepo.ListByCategory(ctx, accountIDs, input.CategoryID, limit, offset)
}

// ListByAccountInput represents input for listing entries of one account.
type ListByAccountInput struct {
	CallerID  string
	AccountID string
	Limit     int
	Offset    int
}

// ListByAccount lists entries of a single account the caller may see.
func (uc *EntryUseCase) ListByAccount(ctx context.Context, input ListByAccountInput) ([]*domain.Entry, error) {
	authorized, _, err := resolveAccess(ctx, uc.accessGate, input.CallerID)
	if err != nil {
		return nil, err
	}

	if err := requireAccount(authorized, input.AccountID); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.entryRepo.ListByAccount(ctx, input.AccountID, limit, offset)
}

// ListOverdue lists the caller's entries that are pending past their due
// date as of the injected clock.
func (uc *EntryUseCase) ListOverdue(ctx context.Context, callerID string) ([]*domain.Entry, error) {
	_, accountIDs, err := resolveAccess(ctx, uc.accessGate, callerID)
	if err != nil {
		return nil, err
	}

	if len(accountIDs) == 0 {
		return []*domain.Entry{}, nil
	}

	return uc.entryRepo.ListOverdue(ctx, accountIDs, domain.DateOnly(uc.clock.Now().UTC()))
}

// ListRecurring lists the caller's recurring series roots.
func (uc *EntryUseCase) ListRecurring(ctx context.Context, callerID string) ([]*domain.Entry, error) {
	_, accountIDs, err := resolveAccess(ctx, uc.accessGate, callerID)
	if err != nil {
		return nil, err
	}

	if len(accountIDs) == 0 {
		return []*domain.Entry{}, nil
	}

	return uc.entryRepo.ListRecurring(ctx, accountIDs)
}

func (uc *EntryUseCase) checkReferences(ctx context.Context, categoryID, accountID string) error {
	exists, err := uc.categories.Exists(ctx, categoryID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrCategoryNotFound
	}

	exists, err = uc.accounts.Exists(ctx, accountID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrAccountNotFound
	}

	return nil
}

// validateEntryFields validates the user-supplied fields shared by create
// and update. kind may be empty on update, where it is immutable.
func validateEntryFields(description string, amount decimal.Decimal, notes string, kind domain.EntryKind) error {
	if err := domain.ValidateDescription(description); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	if err := domain.ValidateNotes(notes); err != nil {
		return err
	}

	if kind != "" {
		if err := domain.ValidateKind(kind); err != nil {
			return err
		}
	}

	return nil
}

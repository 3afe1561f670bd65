package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/infrastructure/metrics"
)

// SeriesUseCase handles recurring/installment series: generation, linkage
// resolution, edit propagation, and on-demand extension.
type SeriesUseCase struct {
	txManager  TransactionManager
	entryRepo  EntryRepository
	accessGate AccessGate
	accounts   AccountDirectory
	categories CategoryDirectory
	idGen      IDGenerator
	clock      Clock
	metrics    *metrics.Metrics
}

// NewSeriesUseCase creates a new SeriesUseCase.
func NewSeriesUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	accessGate AccessGate,
	accounts AccountDirectory,
	categories CategoryDirectory,
	idGen IDGenerator,
	clock Clock,
	metrics *metrics.Metrics,
) *SeriesUseCase {
	return &SeriesUseCase{
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

// CreateSeriesInput represents input for creating a recurring or
// installment series. Amount is per occurrence; every generated member
// carries it unchanged.
type CreateSeriesInput struct {
	CallerID    string
	Description string
	Amount      decimal.Decimal
	FirstDue    time.Time
	Kind        domain.EntryKind
	Recurrence  domain.RecurrenceKind
	Occurrences int
	Notes       string
	CategoryID  string
	AccountID   string
}

// CreateRecurringSeries expands the recurrence rule and persists the whole
// series atomically: root first to obtain its id, then each occurrence
// referencing it. Partial creation is never an observable outcome.
func (uc *SeriesUseCase) CreateRecurringSeries(ctx context.Context, input CreateSeriesInput) ([]*domain.Entry, error) {
	if err := validateEntryFields(input.Description, input.Amount, input.Notes, input.Kind); err != nil {
		return nil, err
	}

	if input.Occurrences > MaxSeriesOccurrences {
		return nil, fmt.Errorf("%w: occurrence count exceeds %d", domain.ErrInvalidRecurrence, MaxSeriesOccurrences)
	}

	dueDates, err := domain.ExpandSchedule(input.FirstDue, input.Recurrence, input.Occurrences)
	if err != nil {
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

	members := make([]*domain.Entry, 0, input.Occurrences)
	root := &domain.Entry{
		ID:               uc.idGen.Generate(),
		Description:      input.Description,
		Amount:           input.Amount,
		DueDate:          dueDates[0],
		Kind:             input.Kind,
		Status:           domain.StatusPending,
		Notes:            input.Notes,
		IsRecurring:      true,
		Recurrence:       input.Recurrence,
		InstallmentCount: input.Occurrences,
		InstallmentIndex: 1,
		CategoryID:       input.CategoryID,
		AccountID:        input.AccountID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.entryRepo.Create(txCtx, tx, root); err != nil {
		return nil, err
	}

	members = append(members, root)

	for i := 1; i < input.Occurrences; i++ {
		child := &domain.Entry{
			ID:               uc.idGen.Generate(),
			Description:      input.Description,
			Amount:           input.Amount,
			DueDate:          dueDates[i],
			Kind:             input.Kind,
			Status:           domain.StatusPending,
			Notes:            input.Notes,
			IsRecurring:      true,
			Recurrence:       input.Recurrence,
			InstallmentCount: input.Occurrences,
			InstallmentIndex: i + 1,
			ParentID:         root.ID,
			CategoryID:       input.CategoryID,
			AccountID:        input.AccountID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if err := uc.entryRepo.Create(txCtx, tx, child); err != nil {
			return nil, err
		}

		members = append(members, child)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SeriesCreated.Inc()
		uc.metrics.OccurrencesGenerated.Add(float64(input.Occurrences))
	}

	return members, nil
}

// GetSeries resolves the full series from any of its members, sorted by
// installment index and filtered to the caller's accounts.
func (uc *SeriesUseCase) GetSeries(ctx context.Context, callerID, memberID string) ([]*domain.Entry, error) {
	member, err := uc.entryRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	authorized, _, err := resolveAccess(ctx, uc.accessGate, callerID)
	if err != nil {
		return nil, err
	}

	if err := requireAccount(authorized, member.AccountID); err != nil {
		return nil, err
	}

	if !member.IsSeriesMember() {
		return nil, fmt.Errorf("%w: entry %s is not part of a series", domain.ErrSeriesNotFound, memberID)
	}

	members, err := uc.resolveMembers(ctx, member)
	if err != nil {
		return nil, err
	}

	visible := members[:0]
	for _, m := range members {
		if authorized[m.AccountID] {
			visible = append(visible, m)
		}
	}

	return visible, nil
}

// resolveMembers collects root plus children from any member, via id-based
// back-references only. A tombstoned root is skipped; the live members of
// the series remain reachable through the parent id.
func (uc *SeriesUseCase) resolveMembers(ctx context.Context, member *domain.Entry) ([]*domain.Entry, error) {
	rootID := member.ID
	var root *domain.Entry

	if member.ParentID == "" {
		root = member
	} else {
		rootID = member.ParentID

		parent, err := uc.entryRepo.GetByID(ctx, rootID)
		switch {
		case err == nil:
			root = parent
		case errors.Is(err, domain.ErrEntryNotFound):
			// Root was soft-deleted; children still form the series.
		default:
			return nil, err
		}
	}

	children, err := uc.entryRepo.ListByParent(ctx, rootID)
	if err != nil {
		return nil, err
	}

	members := make([]*domain.Entry, 0, len(children)+1)
	if root != nil {
		members = append(members, root)
	}

	for _, c := range children {
		if root != nil && c.ID == root.ID {
			continue
		}
		members = append(members, c)
	}

	sortByIndex(members)

	return members, nil
}

// UpdateSeriesInput represents an edit originating from one series member.
// Nil fields are left untouched. ExpectedUpdatedAt is the concurrency
// token of the edited member.
type UpdateSeriesInput struct {
	CallerID          string
	MemberID          string
	Description       *string
	Amount            *decimal.Decimal
	Notes             *string
	CategoryID        *string
	AccountID         *string
	Recurrence        *domain.RecurrenceKind
	InstallmentCount  *int
	ExpectedUpdatedAt time.Time
}

// UpdateSeriesFromMember applies an edit to the eligible subset of the
// series: members still Pending whose installment index is at or after the
// edited member's. Paid and Canceled members are never mutated. Shrinking
// the series soft-deletes surplus Pending members; growing it generates
// the additional occurrences anchored at the last existing one. The whole
// propagation is one atomic unit.
func (uc *SeriesUseCase) UpdateSeriesFromMember(ctx context.Context, input UpdateSeriesInput) ([]*domain.Entry, error) {
	if err := validateSeriesEdit(input); err != nil {
		return nil, err
	}

	authorized, _, err := resolveAccess(ctx, uc.accessGate, input.CallerID)
	if err != nil {
		return nil, err
	}

	if input.AccountID != nil {
		if err := requireAccount(authorized, *input.AccountID); err != nil {
			return nil, err
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	members, edited, err := uc.lockSeries(txCtx, tx, input.MemberID)
	if err != nil {
		return nil, err
	}

	if err := requireAccount(authorized, edited.AccountID); err != nil {
		return nil, err
	}

	if input.CategoryID != nil || input.AccountID != nil {
		categoryID := edited.CategoryID
		if input.CategoryID != nil {
			categoryID = *input.CategoryID
		}
		accountID := edited.AccountID
		if input.AccountID != nil {
			accountID = *input.AccountID
		}
		if err := uc.checkReferences(txCtx, categoryID, accountID); err != nil {
			return nil, err
		}
	}

	// Concurrency tokens are the pre-edit updated_at values; the edited
	// member uses the caller-supplied one.
	expectedAt := make(map[string]time.Time, len(members))
	for _, m := range members {
		expectedAt[m.ID] = m.UpdatedAt
	}
	expectedAt[edited.ID] = input.ExpectedUpdatedAt

	eligible := make([]*domain.Entry, 0, len(members))
	for _, m := range members {
		if m.Status == domain.StatusPending && m.InstallmentIndex >= edited.InstallmentIndex {
			eligible = append(eligible, m)
		}
	}

	for _, m := range eligible {
		if input.Description != nil {
			m.Description = *input.Description
		}
		if input.Amount != nil {
			m.Amount = *input.Amount
		}
		if input.Notes != nil {
			m.Notes = *input.Notes
		}
		if input.CategoryID != nil {
			m.CategoryID = *input.CategoryID
		}
		if input.AccountID != nil {
			m.AccountID = *input.AccountID
		}
	}

	recurrence := edited.Recurrence
	if input.Recurrence != nil && *input.Recurrence != edited.Recurrence {
		recurrence = *input.Recurrence

		if err := uc.replanDueDates(eligible, edited, recurrence); err != nil {
			return nil, err
		}
	}

	var created []*domain.Entry

	newCount := edited.InstallmentCount
	if input.InstallmentCount != nil && *input.InstallmentCount != edited.InstallmentCount {
		newCount = *input.InstallmentCount

		eligible, created, err = uc.resizeSeries(txCtx, tx, members, eligible, edited, recurrence, newCount)
		if err != nil {
			return nil, err
		}
	}

	now := uc.clock.Now().UTC()
	for _, m := range eligible {
		m.InstallmentCount = newCount
		m.Recurrence = recurrence
		m.UpdatedAt = now

		if err := uc.entryRepo.Update(txCtx, tx, m, expectedAt[m.ID]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SeriesEditsPropagated.Inc()
	}

	affected := append(eligible, created...)
	sortByIndex(affected)

	return affected, nil
}

// replanDueDates reschedules the eligible members under a new recurrence
// kind, anchored at the edited member's due date. Settled members keep
// their dates.
func (uc *SeriesUseCase) replanDueDates(eligible []*domain.Entry, edited *domain.Entry, kind domain.RecurrenceKind) error {
	if len(eligible) == 0 {
		return nil
	}

	// When the edited member itself is settled it keeps its date and only
	// serves as the anchor; the first eligible member takes the occurrence
	// after it.
	offset := 1
	if eligible[0].ID == edited.ID {
		offset = 0
	}

	dates, err := domain.ExpandSchedule(edited.DueDate, kind, len(eligible)+offset)
	if err != nil {
		return err
	}

	for i, m := range eligible {
		m.DueDate = dates[i+offset]
	}

	return nil
}

// resizeSeries shrinks or grows the series to newCount members. Shrinking
// soft-deletes surplus Pending members past the new count; growing
// generates the missing occurrences from the last existing one.
func (uc *SeriesUseCase) resizeSeries(
	ctx context.Context,
	tx Transaction,
	members, eligible []*domain.Entry,
	edited *domain.Entry,
	recurrence domain.RecurrenceKind,
	newCount int,
) (remaining, created []*domain.Entry, err error) {
	if newCount > MaxSeriesOccurrences {
		return nil, nil, fmt.Errorf("%w: occurrence count exceeds %d", domain.ErrInvalidRecurrence, MaxSeriesOccurrences)
	}

	last := members[0]
	for _, m := range members {
		if m.InstallmentIndex > last.InstallmentIndex {
			last = m
		}
	}

	if newCount < last.InstallmentIndex {
		now := uc.clock.Now().UTC()

		remaining = eligible[:0]
		for _, m := range eligible {
			if m.InstallmentIndex > newCount {
				if err := uc.entryRepo.SoftDelete(ctx, tx, m.ID, now); err != nil {
					return nil, nil, err
				}
				continue
			}
			remaining = append(remaining, m)
		}

		return remaining, nil, nil
	}

	additional := newCount - last.InstallmentIndex
	if additional == 0 {
		return eligible, nil, nil
	}

	dates, err := domain.ExpandSchedule(last.DueDate, recurrence, additional+1)
	if err != nil {
		return nil, nil, err
	}

	rootID := edited.ParentID
	if rootID == "" {
		rootID = edited.ID
	}

	now := uc.clock.Now().UTC()
	for i := 0; i < additional; i++ {
		member := &domain.Entry{
			ID:               uc.idGen.Generate(),
			Description:      edited.Description,
			Amount:           edited.Amount,
			DueDate:          dates[i+1],
			Kind:             edited.Kind,
			Status:           domain.StatusPending,
			Notes:            edited.Notes,
			IsRecurring:      true,
			Recurrence:       recurrence,
			InstallmentCount: newCount,
			InstallmentIndex: last.InstallmentIndex + i + 1,
			ParentID:         rootID,
			CategoryID:       edited.CategoryID,
			AccountID:        edited.AccountID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if err := uc.entryRepo.Create(ctx, tx, member); err != nil {
			return nil, nil, err
		}

		created = append(created, member)
	}

	return eligible, created, nil
}

// GenerateOccurrencesInput represents input for extending a series.
type GenerateOccurrencesInput struct {
	CallerID string
	SeriesID string
	Count    int
}

// GenerateFutureOccurrences extends a series by Count occurrences anchored
// at its current last one. Accepts any series member and resolves the root.
func (uc *SeriesUseCase) GenerateFutureOccurrences(ctx context.Context, input GenerateOccurrencesInput) ([]*domain.Entry, error) {
	count := input.Count
	if count <= 0 {
		count = 1
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

	members, member, err := uc.lockSeries(txCtx, tx, input.SeriesID)
	if err != nil {
		return nil, err
	}

	if err := requireAccount(authorized, member.AccountID); err != nil {
		return nil, err
	}

	last := members[len(members)-1]
	newTotal := last.InstallmentIndex + count
	if newTotal > MaxSeriesOccurrences {
		return nil, fmt.Errorf("%w: occurrence count exceeds %d", domain.ErrInvalidRecurrence, MaxSeriesOccurrences)
	}

	dates, err := domain.ExpandSchedule(last.DueDate, last.Recurrence, count+1)
	if err != nil {
		return nil, err
	}

	rootID := member.ParentID
	if rootID == "" {
		rootID = member.ID
	}

	now := uc.clock.Now().UTC()

	created := make([]*domain.Entry, 0, count)
	for i := 0; i < count; i++ {
		occurrence := &domain.Entry{
			ID:               uc.idGen.Generate(),
			Description:      last.Description,
			Amount:           last.Amount,
			DueDate:          dates[i+1],
			Kind:             last.Kind,
			Status:           domain.StatusPending,
			Notes:            last.Notes,
			IsRecurring:      true,
			Recurrence:       last.Recurrence,
			InstallmentCount: newTotal,
			InstallmentIndex: last.InstallmentIndex + i + 1,
			ParentID:         rootID,
			CategoryID:       last.CategoryID,
			AccountID:        last.AccountID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if err := uc.entryRepo.Create(txCtx, tx, occurrence); err != nil {
			return nil, err
		}

		created = append(created, occurrence)
	}

	// Pending members learn the new series size; settled members are
	// immutable and keep their historical count.
	for _, m := range members {
		if m.Status != domain.StatusPending {
			continue
		}

		expected := m.UpdatedAt
		m.InstallmentCount = newTotal
		m.UpdatedAt = now

		if err := uc.entryRepo.Update(txCtx, tx, m, expected); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.OccurrencesGenerated.Add(float64(count))
	}

	return created, nil
}

// lockSeries locks and returns all live series members sorted by index,
// plus the member the operation originated from.
func (uc *SeriesUseCase) lockSeries(ctx context.Context, tx Transaction, memberID string) ([]*domain.Entry, *domain.Entry, error) {
	member, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, memberID)
	if err != nil {
		return nil, nil, err
	}

	if !member.IsSeriesMember() {
		return nil, nil, fmt.Errorf("%w: entry %s is not part of a series", domain.ErrSeriesNotFound, memberID)
	}

	rootID := member.ID
	var root *domain.Entry

	if member.ParentID == "" {
		root = member
	} else {
		rootID = member.ParentID

		parent, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, rootID)
		switch {
		case err == nil:
			root = parent
		case errors.Is(err, domain.ErrEntryNotFound):
			// Tombstoned root; the live children still form the series.
		default:
			return nil, nil, err
		}
	}

	children, err := uc.entryRepo.ListByParentForUpdate(ctx, tx, rootID)
	if err != nil {
		return nil, nil, err
	}

	members := make([]*domain.Entry, 0, len(children)+1)
	if root != nil {
		members = append(members, root)
	}

	origin := root
	for _, c := range children {
		if root != nil && c.ID == root.ID {
			continue
		}
		if c.ID == member.ID {
			origin = c
		}
		members = append(members, c)
	}

	if origin == nil || (origin == root && member.ID != rootID) {
		origin = member
	}

	if len(members) == 0 {
		return nil, nil, domain.ErrSeriesNotFound
	}

	sortByIndex(members)

	return members, origin, nil
}

func validateSeriesEdit(input UpdateSeriesInput) error {
	if input.Description != nil {
		if err := domain.ValidateDescription(*input.Description); err != nil {
			return err
		}
	}

	if input.Amount != nil {
		if err := domain.ValidateAmount(*input.Amount); err != nil {
			return err
		}
	}

	if input.Notes != nil {
		if err := domain.ValidateNotes(*input.Notes); err != nil {
			return err
		}
	}

	if input.Recurrence != nil {
		if !input.Recurrence.IsValid() || *input.Recurrence == domain.RecurrenceNone {
			return fmt.Errorf("%w: cannot re-plan series to kind %q", domain.ErrInvalidRecurrence, *input.Recurrence)
		}
	}

	if input.InstallmentCount != nil && *input.InstallmentCount < 1 {
		return fmt.Errorf("%w: occurrence count must be at least 1", domain.ErrInvalidRecurrence)
	}

	return nil
}

func (uc *SeriesUseCase) checkReferences(ctx context.Context, categoryID, accountID string) error {
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

func sortByIndex(entries []*domain.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InstallmentIndex < entries[j].InstallmentIndex
	})
}

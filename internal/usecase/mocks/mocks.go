package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/usecase"
)

// MockEntryRepository is an in-memory implementation of EntryRepository.
// Reads and writes go through copies so tests observe repository state,
// not shared pointers. Individual methods can be overridden via the Func
// fields.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Entry, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error)
	UpdateFunc           func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry, expectedUpdatedAt time.Time) error
	SoftDeleteFunc       func(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error
	SumByPeriodFunc      func(ctx context.Context, filter usecase.SumFilter) (decimal.Decimal, decimal.Decimal, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.Entry),
	}
}

// Seed stores entries directly, bypassing any overrides.
func (m *MockEntryRepository) Seed(entries ...*domain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.ID] = copyEntry(e)
	}
}

// Stored returns the stored state of one entry, tombstones included.
func (m *MockEntryRepository) Stored(id string) *domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return copyEntry(e)
	}
	return nil
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = copyEntry(entry)
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok && !e.Deleted {
		return copyEntry(e), nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockEntryRepository) ListByParent(ctx context.Context, parentID string) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, e := range m.entries {
		if !e.Deleted && e.ParentID == parentID {
			entries = append(entries, copyEntry(e))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InstallmentIndex < entries[j].InstallmentIndex
	})
	return entries, nil
}

func (m *MockEntryRepository) ListByParentForUpdate(ctx context.Context, tx usecase.Transaction, parentID string) ([]*domain.Entry, error) {
	return m.ListByParent(ctx, parentID)
}

func (m *MockEntryRepository) Update(ctx context.Context, tx usecase.Transaction, entry *domain.Entry, expectedUpdatedAt time.Time) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, entry, expectedUpdatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.entries[entry.ID]
	if !ok || stored.Deleted {
		return domain.ErrEntryNotFound
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.ErrConcurrencyConflict
	}
	m.entries[entry.ID] = copyEntry(entry)
	return nil
}

func (m *MockEntryRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, tx, id, deletedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.entries[id]
	if !ok || stored.Deleted {
		return domain.ErrEntryNotFound
	}
	stored.Deleted = true
	stored.UpdatedAt = deletedAt
	return nil
}

func (m *MockEntryRepository) ListByPeriod(ctx context.Context, accountIDs []string, from, to time.Time) ([]*domain.Entry, error) {
	return m.list(func(e *domain.Entry) bool {
		return inAccounts(accountIDs, e.AccountID) && !e.DueDate.Before(from) && !e.DueDate.After(to)
	}, 0, 0), nil
}

func (m *MockEntryRepository) ListByCategory(ctx context.Context, accountIDs []string, categoryID string, limit, offset int) ([]*domain.Entry, error) {
	return m.list(func(e *domain.Entry) bool {
		return inAccounts(accountIDs, e.AccountID) && e.CategoryID == categoryID
	}, limit, offset), nil
}

func (m *MockEntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	return m.list(func(e *domain.Entry) bool {
		return e.AccountID == accountID
	}, limit, offset), nil
}

func (m *MockEntryRepository) ListOverdue(ctx context.Context, accountIDs []string, asOf time.Time) ([]*domain.Entry, error) {
	return m.list(func(e *domain.Entry) bool {
		return inAccounts(accountIDs, e.AccountID) && e.IsOverdue(asOf)
	}, 0, 0), nil
}

func (m *MockEntryRepository) ListRecurring(ctx context.Context, accountIDs []string) ([]*domain.Entry, error) {
	return m.list(func(e *domain.Entry) bool {
		return inAccounts(accountIDs, e.AccountID) && e.IsSeriesRoot()
	}, 0, 0), nil
}

func (m *MockEntryRepository) SumByPeriod(ctx context.Context, filter usecase.SumFilter) (decimal.Decimal, decimal.Decimal, error) {
	if m.SumByPeriodFunc != nil {
		return m.SumByPeriodFunc(ctx, filter)
	}
	income, expense := decimal.Zero, decimal.Zero
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.Deleted || !inAccounts(filter.AccountIDs, e.AccountID) {
			continue
		}
		if e.DueDate.Before(filter.From) || e.DueDate.After(filter.To) {
			continue
		}
		if filter.CategoryID != "" && e.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		switch e.Kind {
		case domain.KindIncome:
			income = income.Add(e.Amount)
		case domain.KindExpense:
			expense = expense.Add(e.Amount)
		}
	}
	return income, expense, nil
}

func (m *MockEntryRepository) list(match func(*domain.Entry) bool, limit, offset int) []*domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := []*domain.Entry{}
	for _, e := range m.entries {
		if !e.Deleted && match(e) {
			entries = append(entries, copyEntry(e))
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].DueDate.Equal(entries[j].DueDate) {
			return entries[i].DueDate.Before(entries[j].DueDate)
		}
		return entries[i].ID < entries[j].ID
	})
	if offset > 0 {
		if offset >= len(entries) {
			return []*domain.Entry{}
		}
		entries = entries[offset:]
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

func inAccounts(ids []string, accountID string) bool {
	for _, id := range ids {
		if id == accountID {
			return true
		}
	}
	return false
}

func copyEntry(e *domain.Entry) *domain.Entry {
	c := *e
	if e.PaidDate != nil {
		paid := *e.PaidDate
		c.PaidDate = &paid
	}
	return &c
}

// MockTx records commit/rollback calls.
type MockTx struct {
	Committed  bool
	RolledBack bool

	CommitFunc func(ctx context.Context) error
}

func (t *MockTx) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	t.Committed = true
	return nil
}

func (t *MockTx) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTxManager hands out MockTx instances and keeps the last one for
// assertions.
type MockTxManager struct {
	mu     sync.Mutex
	LastTx *MockTx

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

func (m *MockTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastTx = &MockTx{}
	return m.LastTx, nil
}

// MockAccessGate resolves authorization from a static grants table.
type MockAccessGate struct {
	Grants map[string][]string

	AuthorizedAccountIDsFunc func(ctx context.Context, callerID string) (map[string]bool, error)
}

func NewMockAccessGate(grants map[string][]string) *MockAccessGate {
	return &MockAccessGate{Grants: grants}
}

func (m *MockAccessGate) AuthorizedAccountIDs(ctx context.Context, callerID string) (map[string]bool, error) {
	if m.AuthorizedAccountIDsFunc != nil {
		return m.AuthorizedAccountIDsFunc(ctx, callerID)
	}
	authorized := make(map[string]bool)
	for _, id := range m.Grants[callerID] {
		authorized[id] = true
	}
	return authorized, nil
}

// MockDirectory answers existence checks for accounts or categories.
// Unknown ids exist by default unless Missing lists them.
type MockDirectory struct {
	Missing map[string]bool
}

func NewMockDirectory(missing ...string) *MockDirectory {
	m := &MockDirectory{Missing: make(map[string]bool)}
	for _, id := range missing {
		m.Missing[id] = true
	}
	return m
}

func (m *MockDirectory) Exists(ctx context.Context, id string) (bool, error) {
	return !m.Missing[id], nil
}

// MockClock returns a pinned instant.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockIDGenerator generates a deterministic id sequence.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (g *MockIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("ent-%04d", g.next)
}

// MockCache is an in-memory Cache; TTLs are ignored.
type MockCache struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (c *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.items[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("cache miss: %s", key)
}

func (c *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *MockCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// MockRetrier runs the operation once, without backoff.
type MockRetrier struct{}

func (MockRetrier) Retry(ctx context.Context, operation func() error) error {
	return operation()
}

package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincasa/fincasa/internal/domain"
)

// EntryRepository defines data access for ledger entries. Every read
// excludes soft-deleted rows; tombstones are reachable only through their
// historical effect on linkage and aggregates.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Entry, error)
	ListByParent(ctx context.Context, parentID string) ([]*domain.Entry, error)
	ListByParentForUpdate(ctx context.Context, tx Transaction, parentID string) ([]*domain.Entry, error)
	// Update persists the entry iff its stored updated_at still matches
	// expectedUpdatedAt, otherwise fails with domain.ErrConcurrencyConflict.
	Update(ctx context.Context, tx Transaction, entry *domain.Entry, expectedUpdatedAt time.Time) error
	SoftDelete(ctx context.Context, tx Transaction, id string, deletedAt time.Time) error
	ListByPeriod(ctx context.Context, accountIDs []string, from, to time.Time) ([]*domain.Entry, error)
	ListByCategory(ctx context.Context, accountIDs []string, categoryID string, limit, offset int) ([]*domain.Entry, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
	ListOverdue(ctx context.Context, accountIDs []string, asOf time.Time) ([]*domain.Entry, error)
	ListRecurring(ctx context.Context, accountIDs []string) ([]*domain.Entry, error)
	SumByPeriod(ctx context.Context, filter SumFilter) (income, expense decimal.Decimal, err error)
}

// SumFilter scopes an aggregation query. AccountIDs is mandatory (the
// caller's authorized set); the remaining filters are optional.
type SumFilter struct {
	From       time.Time
	To         time.Time
	AccountIDs []string
	CategoryID string
	Kind       domain.EntryKind
	Status     domain.EntryStatus
}

// AccessGate resolves which account ids a caller may operate on.
type AccessGate interface {
	AuthorizedAccountIDs(ctx context.Context, callerID string) (map[string]bool, error)
}

// AccountDirectory answers account existence checks.
type AccountDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// CategoryDirectory answers category existence checks.
type CategoryDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Clock supplies current time; injected so overdue detection and
// recurrence generation are deterministic under test.
type Clock interface {
	Now() time.Time
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Retrier retries an operation on transient storage failures. Used on the
// read side only; writes are never retried inside the core.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

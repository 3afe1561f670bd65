package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database
	// transaction. Prevents long-running transactions from blocking tables.
	DefaultTransactionTimeout = 10 * time.Second

	// MaxSeriesOccurrences caps how many entries a single series may hold.
	MaxSeriesOccurrences = 480

	// SummaryCacheTTL is how long period summaries are cached.
	SummaryCacheTTL = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached.
	IdempotencyKeyTTL = 24 * time.Hour
)

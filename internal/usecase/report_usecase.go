package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/infrastructure/metrics"
)

// ReportUseCase answers read-side aggregation queries over the live entry
// set.
type ReportUseCase struct {
	entryRepo  EntryRepository
	accessGate AccessGate
	cache      Cache
	retrier    Retrier
	metrics    *metrics.Metrics
}

// NewReportUseCase creates a new ReportUseCase. cache and retrier may be
// nil; both are read-side optimizations.
func NewReportUseCase(
	entryRepo EntryRepository,
	accessGate AccessGate,
	cache Cache,
	retrier Retrier,
	metrics *metrics.Metrics,
) *ReportUseCase {
	return &ReportUseCase{
		entryRepo:  entryRepo,
		accessGate: accessGate,
		cache:      cache,
		retrier:    retrier,
		metrics:    metrics,
	}
}

// SumByPeriodInput represents input for a period summary. CategoryID, Kind
// and Status are optional filters.
type SumByPeriodInput struct {
	CallerID   string
	From       time.Time
	To         time.Time
	CategoryID string
	Kind       domain.EntryKind
	Status     domain.EntryStatus
}

// PeriodSummary is the aggregate over one period: planned cash flow, not
// realized, since the scope is the due date.
type PeriodSummary struct {
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// SumByPeriod computes income, expense and balance for entries due inside
// [from, to], scoped to the caller's authorized accounts. Soft-deleted
// entries never contribute. Sums are exact decimal additions.
func (uc *ReportUseCase) SumByPeriod(ctx context.Context, input SumByPeriodInput) (*PeriodSummary, error) {
	if err := domain.ValidatePeriod(input.From, input.To); err != nil {
		return nil, err
	}

	if input.Kind != "" {
		if err := domain.ValidateKind(input.Kind); err != nil {
			return nil, err
		}
	}

	_, accountIDs, err := resolveAccess(ctx, uc.accessGate, input.CallerID)
	if err != nil {
		return nil, err
	}

	from := domain.DateOnly(input.From)
	to := domain.DateOnly(input.To)

	summary := &PeriodSummary{
		From:    from,
		To:      to,
		Income:  decimal.Zero,
		Expense: decimal.Zero,
		Balance: decimal.Zero,
	}

	if len(accountIDs) == 0 {
		return summary, nil
	}

	cacheKey := summaryCacheKey(input.CallerID, from, to, input.CategoryID, input.Kind, input.Status)

	if cached := uc.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	filter := SumFilter{
		From:       from,
		To:         to,
		AccountIDs: accountIDs,
		CategoryID: input.CategoryID,
		Kind:       input.Kind,
		Status:     input.Status,
	}

	query := func() error {
		income, expense, err := uc.entryRepo.SumByPeriod(ctx, filter)
		if err != nil {
			return err
		}

		summary.Income = income
		summary.Expense = expense

		return nil
	}

	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, query)
	} else {
		err = query()
	}
	if err != nil {
		return nil, err
	}

	summary.Balance = summary.Income.Sub(summary.Expense)

	uc.toCache(ctx, cacheKey, summary)

	return summary, nil
}

func (uc *ReportUseCase) fromCache(ctx context.Context, key string) *PeriodSummary {
	if uc.cache == nil {
		return nil
	}

	raw, err := uc.cache.Get(ctx, key)
	if err != nil || raw == nil {
		if uc.metrics != nil {
			uc.metrics.SummaryCacheMisses.Inc()
		}

		return nil
	}

	var summary PeriodSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}

	if uc.metrics != nil {
		uc.metrics.SummaryCacheHits.Inc()
	}

	return &summary
}

func (uc *ReportUseCase) toCache(ctx context.Context, key string, summary *PeriodSummary) {
	if uc.cache == nil {
		return
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}

	// Cache failures only cost the next read a query.
	_ = uc.cache.Set(ctx, key, raw, SummaryCacheTTL)
}

func summaryCacheKey(callerID string, from, to time.Time, categoryID string, kind domain.EntryKind, status domain.EntryStatus) string {
	return fmt.Sprintf("summary:%s:%s:%s:%s:%s:%s",
		callerID,
		from.Format(time.DateOnly),
		to.Format(time.DateOnly),
		categoryID,
		kind,
		status,
	)
}

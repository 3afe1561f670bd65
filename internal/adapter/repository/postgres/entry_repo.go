package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fincasa/fincasa/internal/domain"
	"github.com/fincasa/fincasa/internal/usecase"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const entryColumns = `id, description, amount, due_date, paid_date, kind, status, notes,
	is_recurring, recurrence, installment_count, installment_index, parent_id,
	category_id, account_id, created_at, updated_at, is_deleted`

// EntryRepository implements usecase.EntryRepository. Deletion is a
// tombstone flag; every read filters on NOT is_deleted.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create inserts a new entry inside the transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO entries (
			id, description, amount, due_date, paid_date, kind, status, notes,
			is_recurring, recurrence, installment_count, installment_index, parent_id,
			category_id, account_id, created_at, updated_at, is_deleted
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, FALSE)
	`

	_, err := pgxTx.Exec(ctx, query,
		entry.ID,
		entry.Description,
		decimalToNumeric(entry.Amount),
		timeToPgDate(entry.DueDate),
		timePtrToPgDate(entry.PaidDate),
		string(entry.Kind),
		string(entry.Status),
		entry.Notes,
		entry.IsRecurring,
		string(entry.Recurrence),
		entry.InstallmentCount,
		entry.InstallmentIndex,
		stringToPgText(entry.ParentID),
		entry.CategoryID,
		entry.AccountID,
		timeToPgTimestamptz(entry.CreatedAt),
		timeToPgTimestamptz(entry.UpdatedAt),
	)

	return err
}

// GetByID retrieves a live entry by ID.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	return r.getByID(ctx, r.pool, id, "")
}

// GetByIDForUpdate retrieves a live entry by ID with a FOR UPDATE lock.
func (r *EntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error) {
	return r.getByID(ctx, tx.(*Tx).PgxTx(), id, " FOR UPDATE")
}

func (r *EntryRepository) getByID(ctx context.Context, q querier, id, suffix string) (*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1 AND NOT is_deleted` + suffix

	entry, err := scanEntry(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return entry, nil
}

// ListByParent retrieves the live children of a series root, ordered by
// installment index.
func (r *EntryRepository) ListByParent(ctx context.Context, parentID string) ([]*domain.Entry, error) {
	return r.listByParent(ctx, r.pool, parentID, "")
}

// ListByParentForUpdate retrieves the live children of a series root with
// FOR UPDATE locks.
func (r *EntryRepository) ListByParentForUpdate(ctx context.Context, tx usecase.Transaction, parentID string) ([]*domain.Entry, error) {
	return r.listByParent(ctx, tx.(*Tx).PgxTx(), parentID, " FOR UPDATE")
}

func (r *EntryRepository) listByParent(ctx context.Context, q querier, parentID, suffix string) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE parent_id = $1 AND NOT is_deleted
		ORDER BY installment_index` + suffix

	rows, err := q.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Update persists the entry iff the stored updated_at still matches
// expectedUpdatedAt. A vanished row maps to ErrEntryNotFound, a changed
// version to ErrConcurrencyConflict.
func (r *EntryRepository) Update(ctx context.Context, tx usecase.Transaction, entry *domain.Entry, expectedUpdatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE entries
		SET description = $2, amount = $3, due_date = $4, paid_date = $5,
		    status = $6, notes = $7, recurrence = $8, installment_count = $9,
		    category_id = $10, account_id = $11, updated_at = $12
		WHERE id = $1 AND updated_at = $13 AND NOT is_deleted
	`

	tag, err := pgxTx.Exec(ctx, query,
		entry.ID,
		entry.Description,
		decimalToNumeric(entry.Amount),
		timeToPgDate(entry.DueDate),
		timePtrToPgDate(entry.PaidDate),
		string(entry.Status),
		entry.Notes,
		string(entry.Recurrence),
		entry.InstallmentCount,
		entry.CategoryID,
		entry.AccountID,
		timeToPgTimestamptz(entry.UpdatedAt),
		timeToPgTimestamptz(expectedUpdatedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		probe := `SELECT EXISTS (SELECT 1 FROM entries WHERE id = $1 AND NOT is_deleted)`
		if err := pgxTx.QueryRow(ctx, probe, entry.ID).Scan(&exists); err != nil {
			return err
		}

		if exists {
			return domain.ErrConcurrencyConflict
		}

		return domain.ErrEntryNotFound
	}

	return nil
}

// SoftDelete tombstones an entry.
func (r *EntryRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE entries SET is_deleted = TRUE, updated_at = $2 WHERE id = $1 AND NOT is_deleted`

	tag, err := pgxTx.Exec(ctx, query, id, timeToPgTimestamptz(deletedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// ListByPeriod retrieves live entries due inside [from, to] for a set of
// accounts.
func (r *EntryRepository) ListByPeriod(ctx context.Context, accountIDs []string, from, to time.Time) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE account_id = ANY($1) AND NOT is_deleted
		  AND due_date BETWEEN $2 AND $3
		ORDER BY due_date, id
	`

	rows, err := r.pool.Query(ctx, query, accountIDs, timeToPgDate(from), timeToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByCategory retrieves live entries of one category with pagination.
func (r *EntryRepository) ListByCategory(ctx context.Context, accountIDs []string, categoryID string, limit, offset int) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE account_id = ANY($1) AND category_id = $2 AND NOT is_deleted
		ORDER BY due_date, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, accountIDs, categoryID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByAccount retrieves live entries of one account with pagination.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE account_id = $1 AND NOT is_deleted
		ORDER BY due_date, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListOverdue retrieves live pending entries past due as of the given day.
func (r *EntryRepository) ListOverdue(ctx context.Context, accountIDs []string, asOf time.Time) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE account_id = ANY($1) AND NOT is_deleted
		  AND status = 'pending' AND due_date < $2
		ORDER BY due_date, id
	`

	rows, err := r.pool.Query(ctx, query, accountIDs, timeToPgDate(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListRecurring retrieves the live series roots of a set of accounts.
func (r *EntryRepository) ListRecurring(ctx context.Context, accountIDs []string) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE account_id = ANY($1) AND NOT is_deleted
		  AND is_recurring AND parent_id IS NULL
		ORDER BY due_date, id
	`

	rows, err := r.pool.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// SumByPeriod aggregates live entry amounts by kind for the filter. The sum
// happens in the database as exact numeric arithmetic.
func (r *EntryRepository) SumByPeriod(ctx context.Context, filter usecase.SumFilter) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'expense'), 0)
		FROM entries
		WHERE NOT is_deleted AND account_id = ANY($1)
		  AND due_date BETWEEN $2 AND $3
	`
	args := []any{filter.AccountIDs, timeToPgDate(filter.From), timeToPgDate(filter.To)}
	argPos := 4

	if filter.CategoryID != "" {
		query += fmt.Sprintf(` AND category_id = $%d`, argPos)
		args = append(args, filter.CategoryID)
		argPos++
	}

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argPos)
		args = append(args, string(filter.Kind))
		argPos++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argPos)
		args = append(args, string(filter.Status))
	}

	var income, expense pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&income, &expense); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(income), numericToDecimal(expense), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		entry    domain.Entry
		amount   pgtype.Numeric
		dueDate  pgtype.Date
		paidDate pgtype.Date
		parentID pgtype.Text
		created  pgtype.Timestamptz
		updated  pgtype.Timestamptz
	)

	err := row.Scan(
		&entry.ID,
		&entry.Description,
		&amount,
		&dueDate,
		&paidDate,
		&entry.Kind,
		&entry.Status,
		&entry.Notes,
		&entry.IsRecurring,
		&entry.Recurrence,
		&entry.InstallmentCount,
		&entry.InstallmentIndex,
		&parentID,
		&entry.CategoryID,
		&entry.AccountID,
		&created,
		&updated,
		&entry.Deleted,
	)
	if err != nil {
		return nil, err
	}

	entry.Amount = numericToDecimal(amount)
	entry.DueDate = dueDate.Time.UTC()
	entry.CreatedAt = created.Time
	entry.UpdatedAt = updated.Time

	if paidDate.Valid {
		paid := paidDate.Time.UTC()
		entry.PaidDate = &paid
	}

	if parentID.Valid {
		entry.ParentID = parentID.String
	}

	return &entry, nil
}

func scanEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	entries := []*domain.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timeToPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: true}
}

func timePtrToPgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}

	return pgtype.Date{Time: *t, Valid: true}
}

func stringToPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}

	return pgtype.Text{String: s, Valid: true}
}

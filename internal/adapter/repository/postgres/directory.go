package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountDirectory implements usecase.AccountDirectory.
type AccountDirectory struct {
	pool *pgxpool.Pool
}

// NewAccountDirectory creates a new AccountDirectory.
func NewAccountDirectory(pool *pgxpool.Pool) *AccountDirectory {
	return &AccountDirectory{pool: pool}
}

// Exists reports whether the account exists.
func (d *AccountDirectory) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, d.pool, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id)
}

// CategoryDirectory implements usecase.CategoryDirectory.
type CategoryDirectory struct {
	pool *pgxpool.Pool
}

// NewCategoryDirectory creates a new CategoryDirectory.
func NewCategoryDirectory(pool *pgxpool.Pool) *CategoryDirectory {
	return &CategoryDirectory{pool: pool}
}

// Exists reports whether the category exists.
func (d *CategoryDirectory) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, d.pool, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id)
}

func exists(ctx context.Context, pool *pgxpool.Pool, query, id string) (bool, error) {
	var found bool
	if err := pool.QueryRow(ctx, query, id).Scan(&found); err != nil {
		return false, err
	}

	return found, nil
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessGate implements usecase.AccessGate on top of the account_members
// table. A caller may operate on every account they are a member of.
type AccessGate struct {
	pool *pgxpool.Pool
}

// NewAccessGate creates a new AccessGate.
func NewAccessGate(pool *pgxpool.Pool) *AccessGate {
	return &AccessGate{pool: pool}
}

// AuthorizedAccountIDs returns the set of account ids the caller belongs to.
func (g *AccessGate) AuthorizedAccountIDs(ctx context.Context, callerID string) (map[string]bool, error) {
	query := `SELECT account_id FROM account_members WHERE user_id = $1`

	rows, err := g.pool.Query(ctx, query, callerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authorized := make(map[string]bool)
	for rows.Next() {
		var accountID string
		if err := rows.Scan(&accountID); err != nil {
			return nil, err
		}

		authorized[accountID] = true
	}

	return authorized, rows.Err()
}

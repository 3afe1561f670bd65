package usecase

import (
	"context"
	"sort"

	"github.com/fincasa/fincasa/internal/domain"
)

// resolveAccess fetches the caller's authorized account set and returns it
// both as a set and as a sorted slice for query predicates.
func resolveAccess(ctx context.Context, gate AccessGate, callerID string) (map[string]bool, []string, error) {
	authorized, err := gate.AuthorizedAccountIDs(ctx, callerID)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(authorized))
	for id := range authorized {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return authorized, ids, nil
}

// requireAccount checks that the account is inside the caller's authorized
// set. Access failures surface as Unauthorized, never as not-found: the
// core does not leak existence to its own callers.
func requireAccount(authorized map[string]bool, accountID string) error {
	if !authorized[accountID] {
		return domain.ErrUnauthorized
	}

	return nil
}

package service

import (
	"context"
	"fmt"

	"usermgmt/internal/repository"
)

// admitFirstAccount decides whether the account about to be inserted in tx
// becomes the administrator. It must run inside the registration transaction:
// the advisory lock serializes concurrent registrations until commit or
// rollback, so exactly one of them can observe an empty table.
func admitFirstAccount(ctx context.Context, tx repository.AccountRepository) (bool, error) {
	if err := tx.AcquireBootstrapLock(ctx); err != nil {
		return false, fmt.Errorf("acquire bootstrap lock: %w", err)
	}

	exists, err := tx.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check existing accounts: %w", err)
	}
	return !exists, nil
}

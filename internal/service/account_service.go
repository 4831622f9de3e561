package service

import (
	"context"
	"fmt"
	"time"

	"usermgmt/internal/auth"
	"usermgmt/internal/cache"
	"usermgmt/internal/errors"
	"usermgmt/internal/logging"
	"usermgmt/internal/model"
	"usermgmt/internal/repository"
)

// AccountService manages the account lifecycle.
// ListAll, GetByID, SetActive and Delete are admin operations; callers are
// expected to pass the AuthService admin gate first.
type AccountService interface {
	Register(ctx context.Context, username, password string) (*model.Account, error)
	UpdateOwnCredential(ctx context.Context, account *model.Account, newPassword *string) (*model.Account, error)
	ListAll(ctx context.Context) ([]model.Account, error)
	GetByID(ctx context.Context, id uint) (*model.Account, error)
	SetActive(ctx context.Context, targetID uint, active bool, actingAdminID uint) (*model.Account, error)
	Delete(ctx context.Context, targetID uint, actingAdminID uint) error
}

type accountService struct {
	repo     repository.AccountRepository
	hasher   auth.PasswordHasher
	cache    *cache.Client
	cacheTTL time.Duration
	log      logging.Logger
}

// NewAccountService creates a new account service. cache may be nil.
func NewAccountService(
	repo repository.AccountRepository,
	hasher auth.PasswordHasher,
	cache *cache.Client,
	cacheTTL time.Duration,
	log logging.Logger,
) AccountService {
	return &accountService{
		repo:     repo,
		hasher:   hasher,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

func (s *accountService) cacheKey(id uint) string {
	return fmt.Sprintf("account:%d", id)
}

// Register creates an account. The first account ever committed becomes the admin.
func (s *accountService) Register(ctx context.Context, username, password string) (*model.Account, error) {
	// Hash before the transaction so the bootstrap lock is held only for check+insert.
	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Username:     username,
		PasswordHash: hashedPassword,
		IsActive:     true,
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.AccountRepository) error {
		isFirst, err := admitFirstAccount(ctx, tx)
		if err != nil {
			return err
		}
		account.IsAdmin = isFirst
		return tx.Create(ctx, account)
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, errors.ErrUsernameConflict
		}
		s.log.Error(ctx, "register account failed", "error", err)
		return nil, fmt.Errorf("register account: %w", err)
	}

	s.log.Info(ctx, "account registered", "account_id", account.ID, "is_admin", account.IsAdmin)
	return account, nil
}

// UpdateOwnCredential replaces the caller's password when newPassword is set
// and non-empty, then reads the account back.
func (s *accountService) UpdateOwnCredential(ctx context.Context, account *model.Account, newPassword *string) (*model.Account, error) {
	var hashedPassword string
	if newPassword != nil && *newPassword != "" {
		h, err := s.hasher.Hash(*newPassword)
		if err != nil {
			return nil, err
		}
		hashedPassword = h
	}

	var updated *model.Account
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.AccountRepository) error {
		if hashedPassword == "" {
			found, err := tx.FindByID(ctx, account.ID)
			updated = found
			return err
		}
		found, err := tx.FindByIDForUpdate(ctx, account.ID)
		if err != nil {
			return err
		}
		if err := tx.UpdatePasswordHash(ctx, found, hashedPassword); err != nil {
			return err
		}
		found.PasswordHash = hashedPassword
		updated = found
		return nil
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("update credential: %w", err)
	}

	s.cache.Invalidate(ctx, s.cacheKey(account.ID))
	if hashedPassword != "" {
		s.log.Info(ctx, "account password changed", "account_id", account.ID)
	}
	return updated, nil
}

// ListAll returns every account ordered by ascending ID.
func (s *accountService) ListAll(ctx context.Context) ([]model.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// GetByID retrieves an account by ID with caching.
// The invalidation generation is read before the store so that a mutation
// committing during the load keeps the stale row out of the cache.
func (s *accountService) GetByID(ctx context.Context, id uint) (*model.Account, error) {
	key := s.cacheKey(id)
	var cached model.Account
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}
	gen, cacheable := s.cache.Generation(ctx, key)

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if cacheable {
		s.cache.SetJSONAt(ctx, key, account, s.cacheTTL, gen)
	}
	return account, nil
}

// SetActive activates or deactivates another account.
// The self check runs before the lookup, so an admin referencing its own ID
// always gets ErrSelfActionForbidden, even if that row no longer exists.
func (s *accountService) SetActive(ctx context.Context, targetID uint, active bool, actingAdminID uint) (*model.Account, error) {
	if targetID == actingAdminID {
		return nil, errors.ErrSelfActionForbidden
	}

	var updated *model.Account
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.AccountRepository) error {
		account, err := tx.FindByIDForUpdate(ctx, targetID)
		if err != nil {
			return err
		}
		if err := tx.SetActive(ctx, account, active); err != nil {
			return err
		}
		account.IsActive = active
		updated = account
		return nil
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("set account active: %w", err)
	}

	s.cache.Invalidate(ctx, s.cacheKey(targetID))
	s.log.Info(ctx, "account active flag changed",
		"account_id", targetID, "is_active", active, "admin_id", actingAdminID)
	return updated, nil
}

// Delete permanently removes another account. Same guard ordering as SetActive.
func (s *accountService) Delete(ctx context.Context, targetID uint, actingAdminID uint) error {
	if targetID == actingAdminID {
		return errors.ErrSelfActionForbidden
	}

	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx repository.AccountRepository) error {
		if _, err := tx.FindByIDForUpdate(ctx, targetID); err != nil {
			return err
		}
		return tx.Delete(ctx, targetID)
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return errors.ErrNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	s.cache.Invalidate(ctx, s.cacheKey(targetID))
	s.log.Info(ctx, "account deleted", "account_id", targetID, "admin_id", actingAdminID)
	return nil
}

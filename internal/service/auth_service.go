package service

import (
	"context"
	"fmt"

	"usermgmt/internal/auth"
	"usermgmt/internal/errors"
	"usermgmt/internal/logging"
	"usermgmt/internal/model"
	"usermgmt/internal/repository"
)

// AuthService is the gate evaluated on every protected request.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*model.Account, error)
	RequireAdmin(account *model.Account) error
}

type authService struct {
	repo      repository.AccountRepository
	hasher    auth.PasswordHasher
	dummyHash string
	log       logging.Logger
}

// NewAuthService creates a new authentication service.
// It hashes a throwaway password once so that lookups of unknown usernames
// cost the same verification time as real ones.
func NewAuthService(repo repository.AccountRepository, hasher auth.PasswordHasher, log logging.Logger) (AuthService, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &authService{
		repo:      repo,
		hasher:    hasher,
		dummyHash: dummy,
		log:       log,
	}, nil
}

// Authenticate verifies credentials against the store. Unknown users,
// inactive accounts and wrong passwords all yield ErrUnauthorized.
func (s *authService) Authenticate(ctx context.Context, username, password string) (*model.Account, error) {
	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if !repository.IsNotFound(err) {
			s.log.Error(ctx, "authentication lookup failed", "error", err)
			return nil, fmt.Errorf("find account: %w", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		return nil, errors.ErrUnauthorized
	}

	if !account.IsActive {
		s.hasher.Verify(password, s.dummyHash)
		return nil, errors.ErrUnauthorized
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, errors.ErrUnauthorized
	}

	return account, nil
}

// RequireAdmin fails with ErrForbidden unless account is an administrator.
func (s *authService) RequireAdmin(account *model.Account) error {
	if account == nil || !account.IsAdmin {
		return errors.ErrForbidden
	}
	return nil
}

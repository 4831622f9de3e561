package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"usermgmt/internal/errors"
	"usermgmt/internal/model"
	"usermgmt/internal/repository"
)

// MockAccountRepository is a mock implementation of AccountRepository.
// WithTransaction runs fn against the same mock unless an error is stubbed.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *model.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *MockAccountRepository) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) UpdatePasswordHash(ctx context.Context, account *model.Account, hash string) error {
	args := m.Called(ctx, account, hash)
	return args.Error(0)
}

func (m *MockAccountRepository) SetActive(ctx context.Context, account *model.Account, active bool) error {
	args := m.Called(ctx, account, active)
	return args.Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) AcquireBootstrapLock(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAccountRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAccountRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.AccountRepository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

// stubHasher is a fast, transparent PasswordHasher for service tests.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", errors.ErrPasswordTooLong
	}
	return "hashed:" + password, nil
}

func (stubHasher) Verify(password, hash string) bool {
	return hash == "hashed:"+password
}

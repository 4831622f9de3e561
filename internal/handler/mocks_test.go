package handler_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"usermgmt/internal/errors"
	"usermgmt/internal/model"
)

// MockAccountService is a mock implementation of service.AccountService.
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, username, password string) (*model.Account, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountService) UpdateOwnCredential(ctx context.Context, account *model.Account, newPassword *string) (*model.Account, error) {
	args := m.Called(ctx, account, newPassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountService) ListAll(ctx context.Context) ([]model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *MockAccountService) GetByID(ctx context.Context, id uint) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountService) SetActive(ctx context.Context, targetID uint, active bool, actingAdminID uint) (*model.Account, error) {
	args := m.Called(ctx, targetID, active, actingAdminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountService) Delete(ctx context.Context, targetID uint, actingAdminID uint) error {
	args := m.Called(ctx, targetID, actingAdminID)
	return args.Error(0)
}

// MockAuthService is a mock implementation of service.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Authenticate(ctx context.Context, username, password string) (*model.Account, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

// RequireAdmin applies the real admin rule; there is nothing to stub.
func (m *MockAuthService) RequireAdmin(account *model.Account) error {
	if account == nil || !account.IsAdmin {
		return errors.ErrForbidden
	}
	return nil
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

package service

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"usermgmt/internal/errors"
	"usermgmt/internal/logging"
	"usermgmt/internal/model"
)

func newTestAccountService(repo *MockAccountRepository) AccountService {
	return NewAccountService(repo, stubHasher{}, nil, time.Minute, logging.Discard())
}

func TestAccountService_Register(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		password      string
		setupMock     func(*MockAccountRepository)
		expectedError error
		expectAdmin   bool
	}{
		{
			name:     "first account becomes admin",
			username: "admin",
			password: "password123",
			setupMock: func(m *MockAccountRepository) {
				m.On("WithTransaction", mock.Anything).Return(nil)
				m.On("AcquireBootstrapLock", mock.Anything).Return(nil)
				m.On("Exists", mock.Anything).Return(false, nil)
				m.On("Create", mock.Anything, mock.MatchedBy(func(a *model.Account) bool {
					return a.Username == "admin" && a.IsAdmin && a.IsActive
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*model.Account).ID = 1
				}).Return(nil)
			},
			expectAdmin: true,
		},
		{
			name:     "later account is regular",
			username: "bob",
			password: "password123",
			setupMock: func(m *MockAccountRepository) {
				m.On("WithTransaction", mock.Anything).Return(nil)
				m.On("AcquireBootstrapLock", mock.Anything).Return(nil)
				m.On("Exists", mock.Anything).Return(true, nil)
				m.On("Create", mock.Anything, mock.MatchedBy(func(a *model.Account) bool {
					return a.Username == "bob" && !a.IsAdmin
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*model.Account).ID = 2
				}).Return(nil)
			},
			expectAdmin: false,
		},
		{
			name:     "duplicate username",
			username: "bob",
			password: "password123",
			setupMock: func(m *MockAccountRepository) {
				m.On("WithTransaction", mock.Anything).Return(nil)
				m.On("AcquireBootstrapLock", mock.Anything).Return(nil)
				m.On("Exists", mock.Anything).Return(true, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.Account")).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: errors.ErrUsernameConflict,
		},
		{
			name:     "password too long never reaches the store",
			username: "carol",
			password: strings.Repeat("x", 73),
			setupMock: func(m *MockAccountRepository) {
			},
			expectedError: errors.ErrPasswordTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockAccountRepository)
			tt.setupMock(mockRepo)

			svc := newTestAccountService(mockRepo)
			account, err := svc.Register(context.Background(), tt.username, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, account)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.username, account.Username)
				assert.Equal(t, tt.expectAdmin, account.IsAdmin)
				assert.True(t, account.IsActive)
				assert.Equal(t, "hashed:"+tt.password, account.PasswordHash)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAccountService_Register_LockFailureIsWrapped(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	mockRepo.On("WithTransaction", mock.Anything).Return(nil)
	mockRepo.On("AcquireBootstrapLock", mock.Anything).Return(stderrors.New("connection reset"))

	svc := newTestAccountService(mockRepo)
	_, err := svc.Register(context.Background(), "admin", "password123")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire bootstrap lock")
	assert.NotErrorIs(t, err, errors.ErrUsernameConflict)
	mockRepo.AssertNotCalled(t, "Exists", mock.Anything)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAccountService_UpdateOwnCredential(t *testing.T) {
	ctx := context.Background()
	caller := &model.Account{ID: 2, Username: "bob", PasswordHash: "hashed:password123", IsActive: true}

	t.Run("no password is a read-back", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		mockRepo.On("WithTransaction", mock.Anything).Return(nil)
		mockRepo.On("FindByID", mock.Anything, uint(2)).Return(&model.Account{ID: 2, Username: "bob", PasswordHash: "hashed:password123"}, nil)

		svc := newTestAccountService(mockRepo)
		updated, err := svc.UpdateOwnCredential(ctx, caller, nil)

		require.NoError(t, err)
		assert.Equal(t, "hashed:password123", updated.PasswordHash)
		mockRepo.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty password is a read-back", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		mockRepo.On("WithTransaction", mock.Anything).Return(nil)
		mockRepo.On("FindByID", mock.Anything, uint(2)).Return(&model.Account{ID: 2, Username: "bob"}, nil)

		empty := ""
		svc := newTestAccountService(mockRepo)
		_, err := svc.UpdateOwnCredential(ctx, caller, &empty)

		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new password is hashed and stored", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		locked := &model.Account{ID: 2, Username: "bob", PasswordHash: "hashed:password123"}
		mockRepo.On("WithTransaction", mock.Anything).Return(nil)
		mockRepo.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(locked, nil)
		mockRepo.On("UpdatePasswordHash", mock.Anything, locked, "hashed:newpassword1").Return(nil)

		newPassword := "newpassword1"
		svc := newTestAccountService(mockRepo)
		updated, err := svc.UpdateOwnCredential(ctx, caller, &newPassword)

		require.NoError(t, err)
		assert.Equal(t, "hashed:newpassword1", updated.PasswordHash)
		mockRepo.AssertExpectations(t)
	})
}

func TestAccountService_ListAll(t *testing.T) {
	mockRepo := new(MockAccountRepository)
	mockRepo.On("List", mock.Anything).Return([]model.Account{{ID: 1}, {ID: 2}, {ID: 5}}, nil)

	svc := newTestAccountService(mockRepo)
	accounts, err := svc.ListAll(context.Background())

	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, []uint{1, 2, 5}, []uint{accounts[0].ID, accounts[1].ID, accounts[2].ID})
}

func TestAccountService_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		mockRepo.On("FindByID", mock.Anything, uint(2)).Return(&model.Account{ID: 2, Username: "bob"}, nil)

		account, err := newTestAccountService(mockRepo).GetByID(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, "bob", account.Username)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		mockRepo.On("FindByID", mock.Anything, uint(9)).Return(nil, gorm.ErrRecordNotFound)

		_, err := newTestAccountService(mockRepo).GetByID(context.Background(), 9)
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}

func TestAccountService_SetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("self action is rejected before lookup", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)

		_, err := newTestAccountService(mockRepo).SetActive(ctx, 1, false, 1)

		assert.ErrorIs(t, err, errors.ErrSelfActionForbidden)
		mockRepo.AssertNotCalled(t, "WithTransaction", mock.Anything)
	})

	t.Run("missing target", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		mockRepo.On("WithTransaction", mock.Anything).Return(nil)
		mockRepo.On("FindByIDForUpdate", mock.Anything, uint(7)).Return(nil, gorm.ErrRecordNotFound)

		_, err := newTestAccountService(mockRepo).SetActive(ctx, 7, false, 1)

		assert.ErrorIs(t, err, errors.ErrNotFound)
		mockRepo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
	})

	for _, active := range []bool{false, true} {
		active := active
		t.Run("toggle", func(t *testing.T) {
			mockRepo := new(MockAccountRepository)
			target := &model.Account{ID: 2, Username: "bob", IsActive: !active}
			mockRepo.On("WithTransaction", mock.Anything).Return(nil)
			mockRepo.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(target, nil)
			mockRepo.On("SetActive", mock.Anything, target, active).Return(nil)

			updated, err := newTestAccountService(mockRepo).SetActive(ctx, 2, active, 1)

			require.NoError(t, err)
			assert.Equal(t, active, updated.IsActive)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAccountService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("self action is rejected before lookup", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)

		err := newTestAccountService(mockRepo).Delete(ctx, 1, 1)

		assert.ErrorIs(t, err, errors.ErrSelfActionForbidden)
		mockRepo.AssertNotCalled(t, "WithTransaction", mock.Anything)
	})

	t.Run("missing target", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		mockRepo.On("WithTransaction", mock.Anything).Return(nil)
		mockRepo.On("FindByIDForUpdate", mock.Anything, uint(7)).Return(nil, gorm.ErrRecordNotFound)

		err := newTestAccountService(mockRepo).Delete(ctx, 7, 1)

		assert.ErrorIs(t, err, errors.ErrNotFound)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deletes target", func(t *testing.T) {
		mockRepo := new(MockAccountRepository)
		mockRepo.On("WithTransaction", mock.Anything).Return(nil)
		mockRepo.On("FindByIDForUpdate", mock.Anything, uint(2)).Return(&model.Account{ID: 2}, nil)
		mockRepo.On("Delete", mock.Anything, uint(2)).Return(nil)

		err := newTestAccountService(mockRepo).Delete(ctx, 2, 1)

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"usermgmt/internal/model"
)

// BootstrapLockKey is the advisory lock key reserved for the first-admin decision.
// Every registration transaction takes it before checking whether accounts exist.
const BootstrapLockKey int64 = 1234567890

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// AccountRepository defines account persistence operations.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uint) (*model.Account, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error)
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Exists(ctx context.Context) (bool, error)
	UpdatePasswordHash(ctx context.Context, account *model.Account, hash string) error
	SetActive(ctx context.Context, account *model.Account, active bool) error
	Delete(ctx context.Context, id uint) error
	// AcquireBootstrapLock blocks until the bootstrap advisory lock is held.
	// The lock is transaction scoped; call it only inside WithTransaction.
	AcquireBootstrapLock(ctx context.Context) error
	// Ping checks database connectivity.
	Ping(ctx context.Context) error
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AccountRepository) error) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts a new account; the store assigns ID and timestamps.
func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// FindByID finds an account by ID.
func (r *accountRepository) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByIDForUpdate finds an account by ID with row-level lock for update.
func (r *accountRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByUsername finds an account by its exact username.
func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// List returns every account ordered by ascending ID.
func (r *accountRepository) List(ctx context.Context) ([]model.Account, error) {
	accounts := make([]model.Account, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Exists reports whether at least one account row is present.
func (r *accountRepository) Exists(ctx context.Context) (bool, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.Account{}).Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// UpdatePasswordHash replaces the stored password hash.
// The passed account is updated in place, including UpdatedAt.
func (r *accountRepository) UpdatePasswordHash(ctx context.Context, account *model.Account, hash string) error {
	return r.db.WithContext(ctx).Model(account).
		Update("password_hash", hash).Error
}

// SetActive updates the active flag of an account.
// The passed account is updated in place, including UpdatedAt.
func (r *accountRepository) SetActive(ctx context.Context, account *model.Account, active bool) error {
	return r.db.WithContext(ctx).Model(account).
		Update("is_active", active).Error
}

// Delete permanently removes an account.
func (r *accountRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Account{}, id).Error
}

// AcquireBootstrapLock takes the transaction-scoped advisory lock.
// It is released by commit or rollback, never explicitly.
func (r *accountRepository) AcquireBootstrapLock(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", BootstrapLockKey).Error
}

// Ping checks database connectivity.
func (r *accountRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithTransaction executes a function within a database transaction.
// A returned error or a panic rolls the transaction back.
func (r *accountRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AccountRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &accountRepository{db: tx}
		return fn(ctx, txRepo)
	})
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// either translated by gorm or still in raw pgx form.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

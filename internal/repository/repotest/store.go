// Package repotest provides an in-memory AccountRepository for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"usermgmt/internal/model"
	"usermgmt/internal/repository"
)

// Store is an in-memory AccountRepository with the transactional
// behaviour the bootstrap logic relies on: inserts become visible only on
// commit, usernames are reserved at insert time, and the bootstrap lock is
// held until the owning transaction ends.
type Store struct {
	mu        sync.Mutex
	rows      map[uint]model.Account
	reserved  map[string]bool
	nextID    uint
	commitLog []uint

	bootstrap sync.Mutex
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		rows:     make(map[uint]model.Account),
		reserved: make(map[string]bool),
	}
}

type memTx struct {
	store      *Store
	holdsLock  bool
	pending    []model.Account
	pendingRef []*model.Account
}

var (
	_ repository.AccountRepository = (*Store)(nil)
	_ repository.AccountRepository = (*memTx)(nil)
)

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.AccountRepository) error) error {
	tx := &memTx{store: s}
	err := fn(ctx, tx)

	s.mu.Lock()
	if err != nil {
		for _, a := range tx.pending {
			delete(s.reserved, a.Username)
		}
	} else {
		for i, a := range tx.pending {
			s.rows[a.ID] = a
			s.commitLog = append(s.commitLog, a.ID)
			*tx.pendingRef[i] = a
		}
	}
	s.mu.Unlock()

	if tx.holdsLock {
		s.bootstrap.Unlock()
	}
	return err
}

// Committed returns every committed account ordered by ID.
func (s *Store) Committed() []model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Account, 0, len(s.rows))
	for _, a := range s.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FirstCommitted returns the ID of the first account ever committed, or 0.
func (s *Store) FirstCommitted() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.commitLog) == 0 {
		return 0
	}
	return s.commitLog[0]
}

// Outside a transaction every method behaves like an auto-committed statement.

func (s *Store) Create(ctx context.Context, account *model.Account) error {
	return s.WithTransaction(ctx, func(ctx context.Context, tx repository.AccountRepository) error {
		return tx.Create(ctx, account)
	})
}

func (s *Store) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	return (&memTx{store: s}).FindByID(ctx, id)
}

func (s *Store) FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error) {
	return s.FindByID(ctx, id)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	return (&memTx{store: s}).FindByUsername(ctx, username)
}

func (s *Store) List(ctx context.Context) ([]model.Account, error) {
	return s.Committed(), nil
}

func (s *Store) Exists(ctx context.Context) (bool, error) {
	return (&memTx{store: s}).Exists(ctx)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, account *model.Account, hash string) error {
	return (&memTx{store: s}).UpdatePasswordHash(ctx, account, hash)
}

func (s *Store) SetActive(ctx context.Context, account *model.Account, active bool) error {
	return (&memTx{store: s}).SetActive(ctx, account, active)
}

func (s *Store) Delete(ctx context.Context, id uint) error {
	return (&memTx{store: s}).Delete(ctx, id)
}

func (s *Store) AcquireBootstrapLock(ctx context.Context) error {
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (tx *memTx) Create(ctx context.Context, account *model.Account) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserved[account.Username] {
		return gorm.ErrDuplicatedKey
	}
	s.reserved[account.Username] = true
	s.nextID++
	now := time.Now()
	row := *account
	row.ID = s.nextID
	row.CreatedAt, row.UpdatedAt = now, now
	tx.pending = append(tx.pending, row)
	tx.pendingRef = append(tx.pendingRef, account)
	return nil
}

func (tx *memTx) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (tx *memTx) FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error) {
	return tx.FindByID(ctx, id)
}

func (tx *memTx) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.rows {
		if a.Username == username {
			a := a
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (tx *memTx) List(ctx context.Context) ([]model.Account, error) {
	return tx.store.Committed(), nil
}

func (tx *memTx) Exists(ctx context.Context) (bool, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows) > 0, nil
}

func (tx *memTx) UpdatePasswordHash(ctx context.Context, account *model.Account, hash string) error {
	return tx.mutate(account.ID, func(a *model.Account) { a.PasswordHash = hash })
}

func (tx *memTx) SetActive(ctx context.Context, account *model.Account, active bool) error {
	return tx.mutate(account.ID, func(a *model.Account) { a.IsActive = active })
}

func (tx *memTx) mutate(id uint, fn func(*model.Account)) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	fn(&a)
	a.UpdatedAt = time.Now()
	s.rows[id] = a
	return nil
}

func (tx *memTx) Delete(ctx context.Context, id uint) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.rows[id]; ok {
		delete(s.reserved, a.Username)
		delete(s.rows, id)
	}
	return nil
}

func (tx *memTx) AcquireBootstrapLock(ctx context.Context) error {
	if !tx.holdsLock {
		tx.store.bootstrap.Lock()
		tx.holdsLock = true
	}
	return nil
}

func (tx *memTx) Ping(ctx context.Context) error {
	return nil
}

func (tx *memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.AccountRepository) error) error {
	return fn(ctx, tx)
}

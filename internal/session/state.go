// Package session holds each user's in-memory snapshot of transactions,
// accounts and categories. The snapshot feeds duplicate detection and list
// rendering; it is never used to compute a balance write.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/store"
)

// Loader is the part of the record store a snapshot reads from.
type Loader interface {
	ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]models.Transaction, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	ListCategories(ctx context.Context, userID string) ([]models.Category, error)
}

// Snapshot is a consistent read of a user's data at one point in time.
type Snapshot struct {
	Transactions []models.Transaction
	Accounts     []models.Account
	Categories   []models.Category
	LoadedAt     time.Time
}

// AccountName returns the name of the account with id, or "".
func (s *Snapshot) AccountName(id *string) string {
	if id == nil {
		return ""
	}
	for i := range s.Accounts {
		if s.Accounts[i].ID == *id {
			return s.Accounts[i].Name
		}
	}
	return ""
}

// State is one user's snapshot plus the means to refresh it.
type State struct {
	userID string
	loader Loader

	mu   sync.RWMutex
	snap Snapshot
}

// NewState creates an empty state for userID. Call Reload to populate it.
func NewState(userID string, loader Loader) *State {
	return &State{userID: userID, loader: loader}
}

// Reload refreshes every collection from the store. A collection whose read
// fails is replaced with an empty one so the rest stay usable; all failures
// are joined into the returned error.
func (s *State) Reload(ctx context.Context) error {
	var errs []error

	txs, err := s.loader.ListTransactions(ctx, s.userID, store.TransactionFilter{})
	if err != nil {
		errs = append(errs, fmt.Errorf("load transactions: %w", err))
		txs = []models.Transaction{}
	}
	accounts, err := s.loader.ListAccounts(ctx, s.userID)
	if err != nil {
		errs = append(errs, fmt.Errorf("load accounts: %w", err))
		accounts = []models.Account{}
	}
	categories, err := s.loader.ListCategories(ctx, s.userID)
	if err != nil {
		errs = append(errs, fmt.Errorf("load categories: %w", err))
		categories = []models.Category{}
	}

	s.mu.Lock()
	s.snap = Snapshot{
		Transactions: txs,
		Accounts:     accounts,
		Categories:   categories,
		LoadedAt:     time.Now(),
	}
	s.mu.Unlock()

	if len(errs) > 0 {
		logger.Get().Warnw("session reload incomplete", "user_id", s.userID, "error", errors.Join(errs...))
	}
	return errors.Join(errs...)
}

// Snapshot returns the current snapshot. The slices are shared; callers must
// not modify them.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Transactions returns the cached transactions.
func (s *State) Transactions() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Transactions
}

// Accounts returns the cached accounts.
func (s *State) Accounts() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Accounts
}

// Categories returns the cached categories.
func (s *State) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Categories
}

// Registry hands out one State per user.
type Registry struct {
	loader Loader

	mu     sync.Mutex
	states map[string]*State
}

// NewRegistry creates an empty registry.
func NewRegistry(loader Loader) *Registry {
	return &Registry{loader: loader, states: make(map[string]*State)}
}

// For returns the user's state, creating it on first use.
func (r *Registry) For(userID string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[userID]
	if !ok {
		st = NewState(userID, r.loader)
		r.states[userID] = st
	}
	return st
}

// Forget drops a user's cached state.
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
}

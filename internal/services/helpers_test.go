package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/session"
	"pennywise/internal/store"
	"pennywise/internal/testutil"
)

func init() {
	logger.Init("test")
}

var errConnReset = errors.New("connection reset by peer")

// flakyStore is a GormStore whose writes can be made to fail.
type flakyStore struct {
	*store.GormStore

	failBalance      map[string]bool
	failUpdate       bool
	failDelete       bool
	failInsertMany   bool
	beforeGetAccount func(accountID string)
}

func (f *flakyStore) SetAccountBalance(ctx context.Context, userID, id string, balance decimal.Decimal) error {
	if f.failBalance[id] {
		return apperrors.Wrap(apperrors.ErrStore, errConnReset)
	}
	return f.GormStore.SetAccountBalance(ctx, userID, id, balance)
}

func (f *flakyStore) GetAccount(ctx context.Context, userID, id string) (*models.Account, error) {
	if f.beforeGetAccount != nil {
		f.beforeGetAccount(id)
	}
	return f.GormStore.GetAccount(ctx, userID, id)
}

func (f *flakyStore) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	if f.failUpdate {
		return apperrors.Wrap(apperrors.ErrStore, errConnReset)
	}
	return f.GormStore.UpdateTransaction(ctx, t)
}

func (f *flakyStore) DeleteTransaction(ctx context.Context, userID, id string) error {
	if f.failDelete {
		return apperrors.Wrap(apperrors.ErrStore, errConnReset)
	}
	return f.GormStore.DeleteTransaction(ctx, userID, id)
}

func (f *flakyStore) InsertTransactions(ctx context.Context, rows []models.Transaction) error {
	if f.failInsertMany {
		return apperrors.Wrap(apperrors.ErrStore, errConnReset)
	}
	return f.GormStore.InsertTransactions(ctx, rows)
}

// testEnv wires the services over one in-memory database.
type testEnv struct {
	db           *gorm.DB
	store        *flakyStore
	sessions     *session.Registry
	accounts     AccountServicer
	transactions TransactionServicer
	userID       string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	s := &flakyStore{GormStore: store.New(db), failBalance: map[string]bool{}}
	accounts := NewAccountService(s)
	return &testEnv{
		db:           db,
		store:        s,
		sessions:     session.NewRegistry(s),
		accounts:     accounts,
		transactions: NewTransactionService(s, accounts),
		userID:       testutil.NewUserID(),
	}
}

func (e *testEnv) account(t *testing.T, balance string) *models.Account {
	t.Helper()
	return testutil.CreateTestAccountWithBalance(t, e.db, e.userID, balance)
}

func (e *testEnv) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	return testutil.Reload(t, e.db, accountID)
}

func (e *testEnv) flags(t *testing.T, accountID string) []models.ReconciliationFlag {
	t.Helper()
	flags, err := e.accounts.GetFlags(context.Background(), e.userID, accountID, true)
	testutil.AssertNoError(t, err)
	return flags
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

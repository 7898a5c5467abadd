// Package store is the record store: table-oriented persistence for
// transactions, accounts, categories, budgets, reconciliation flags and the
// audit log. Every call is its own round-trip, and every method scopes its
// query by user. Failures come back as AppErrors so services can return them
// as-is.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
)

// TransactionFilter narrows transaction queries. Nil fields are ignored.
type TransactionFilter struct {
	AccountID *string
	Type      *models.TransactionType
	Category  *string
	From      *models.Date
	To        *models.Date
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Search    string
}

// TransactionStore persists transactions.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]models.Transaction, error)
	PageTransactions(ctx context.Context, userID string, f TransactionFilter, page pagination.PageRequest) ([]models.Transaction, int64, error)
	GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	InsertTransactions(ctx context.Context, rows []models.Transaction) error
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	SumAmounts(ctx context.Context, userID string, f TransactionFilter) (decimal.Decimal, error)
	SumEffects(ctx context.Context, userID string, f TransactionFilter) (decimal.Decimal, error)
}

// AccountStore persists accounts and their stored balance.
type AccountStore interface {
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetAccount(ctx context.Context, userID, id string) (*models.Account, error)
	InsertAccount(ctx context.Context, a *models.Account) error
	UpdateAccount(ctx context.Context, a *models.Account) error
	SetAccountBalance(ctx context.Context, userID, id string, balance decimal.Decimal) error
	DeleteAccount(ctx context.Context, userID, id string) (unlinked int64, err error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	ListCategories(ctx context.Context, userID string) ([]models.Category, error)
	GetCategory(ctx context.Context, userID, id string) (*models.Category, error)
	FindCategoryByName(ctx context.Context, userID, name string) (*models.Category, error)
	InsertCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category, previousName string) (renamed int64, err error)
	DeleteCategory(ctx context.Context, userID, id string) error
	CountTransactionsInCategory(ctx context.Context, userID, name string) (int64, error)
}

// BudgetFilter narrows budget queries.
type BudgetFilter struct {
	IsActive *bool
	Period   *models.BudgetPeriod
}

// BudgetStore persists budgets.
type BudgetStore interface {
	ListBudgets(ctx context.Context, userID string, f BudgetFilter) ([]models.Budget, error)
	PageBudgets(ctx context.Context, userID string, f BudgetFilter, page pagination.PageRequest) ([]models.Budget, int64, error)
	GetBudget(ctx context.Context, userID, id string) (*models.Budget, error)
	InsertBudget(ctx context.Context, b *models.Budget) error
	UpdateBudget(ctx context.Context, b *models.Budget) error
	DeleteBudget(ctx context.Context, userID, id string) error
}

// FlagStore persists reconciliation flags.
type FlagStore interface {
	InsertFlag(ctx context.Context, f *models.ReconciliationFlag) error
	ListFlags(ctx context.Context, userID, accountID string, openOnly bool) ([]models.ReconciliationFlag, error)
	ResolveFlag(ctx context.Context, userID, id string, at time.Time) (*models.ReconciliationFlag, error)
}

// AuditStore persists audit entries.
type AuditStore interface {
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// Store is the whole record store.
type Store interface {
	TransactionStore
	AccountStore
	CategoryStore
	BudgetStore
	FlagStore
	AuditStore
}

// GormStore implements Store on a GORM connection.
type GormStore struct {
	db *gorm.DB
}

// New creates a GormStore.
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

// DB exposes the underlying connection for health checks.
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// wrap maps a GORM error onto the AppError taxonomy. notFound is returned for
// a missing row.
func wrap(err error, notFound *apperrors.AppError) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if notFound != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return apperrors.Wrap(apperrors.ErrStore, err)
}

// checkAffected turns a write that matched no row into notFound.
func checkAffected(res *gorm.DB, notFound *apperrors.AppError) error {
	if res.Error != nil {
		return wrap(res.Error, notFound)
	}
	if res.RowsAffected == 0 {
		return notFound
	}
	return nil
}

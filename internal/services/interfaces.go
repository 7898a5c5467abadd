package services

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"pennywise/internal/advisor"
	"pennywise/internal/csvimport"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/reconcile"
	"pennywise/internal/store"
)

// AccountInput carries the user-editable fields of an account.
type AccountInput struct {
	Name           string
	Type           models.AccountType
	Color          string
	OpeningBalance decimal.Decimal
}

// ReconciliationReport compares an account's stored balance with the balance
// its transaction history implies.
type ReconciliationReport struct {
	AccountID       string                      `json:"account_id"`
	StoredBalance   decimal.Decimal             `json:"stored_balance"`
	OpeningBalance  decimal.Decimal             `json:"opening_balance"`
	TransactionNet  decimal.Decimal             `json:"transaction_net"`
	ExpectedBalance decimal.Decimal             `json:"expected_balance"`
	Drift           decimal.Decimal             `json:"drift"`
	InSync          bool                        `json:"in_sync"`
	OpenFlags       []models.ReconciliationFlag `json:"open_flags"`
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(ctx context.Context, userID string, in AccountInput) (*models.Account, error)
	GetUserAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetAccountByID(ctx context.Context, userID, accountID string) (*models.Account, error)
	UpdateAccount(ctx context.Context, userID, accountID string, in AccountInput) (*models.Account, error)
	DeleteAccount(ctx context.Context, userID, accountID string) error
	ApplyDelta(ctx context.Context, userID, accountID string, delta decimal.Decimal) (decimal.Decimal, error)
	Reconcile(ctx context.Context, userID, accountID string) (*ReconciliationReport, error)
	FlagInconsistency(ctx context.Context, flag *models.ReconciliationFlag)
	GetFlags(ctx context.Context, userID, accountID string, openOnly bool) ([]models.ReconciliationFlag, error)
	ResolveFlag(ctx context.Context, userID, flagID string) (*models.ReconciliationFlag, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID, name string, categoryType models.CategoryType, color string) (*models.Category, error)
	GetUserCategories(ctx context.Context, userID string, categoryType *models.CategoryType) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID string, name string, categoryType *models.CategoryType, color string) (*models.Category, int64, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter = store.TransactionFilter

// TransactionInput is the full new state of a transaction. Amount is a
// positive magnitude; direction comes from Type.
type TransactionInput struct {
	AccountID   *string
	Date        models.Date
	Amount      decimal.Decimal
	Type        models.TransactionType
	Category    string
	Description string
	Notes       string
}

// TransactionServicer defines the contract for transaction-related business
// logic. Every mutation keeps the linked account's balance in step.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, in TransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
}

// BudgetInput carries the fields of a budget.
type BudgetInput struct {
	Category  string
	Name      string
	Amount    decimal.Decimal
	Period    models.BudgetPeriod
	StartDate models.Date
	EndDate   *models.Date
}

// BudgetUpdate holds optional budget changes. Nil fields are left alone.
type BudgetUpdate struct {
	Name     *string
	Amount   *decimal.Decimal
	Period   *models.BudgetPeriod
	EndDate  *models.Date
	IsActive *bool
}

// BudgetProgress contains spending vs budget data for a budget's current period.
type BudgetProgress struct {
	BudgetID    string          `json:"budget_id"`
	Category    string          `json:"category"`
	PeriodStart models.Date     `json:"period_start"`
	PeriodEnd   models.Date     `json:"period_end"`
	Budgeted    decimal.Decimal `json:"budgeted"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	Percentage  float64         `json:"percentage"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error)
	GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest, filter store.BudgetFilter) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error)
}

// ImportRequest is one uploaded statement.
type ImportRequest struct {
	AccountID *string
	Filename  string
	Data      []byte
	// ArchiveURI marks a replay of an already archived statement; the bytes
	// are not archived again.
	ArchiveURI string
}

// ImportResult reports what an import did.
type ImportResult struct {
	Format         csvimport.Format     `json:"format"`
	Imported       int                  `json:"imported"`
	Duplicates     int                  `json:"duplicates"`
	Skipped        int                  `json:"skipped"`
	RowErrors      []csvimport.RowError `json:"row_errors,omitempty"`
	NetAmount      decimal.Decimal      `json:"net_amount"`
	LatestDate     *models.Date         `json:"latest_date,omitempty"`
	RunningBalance *decimal.Decimal     `json:"running_balance,omitempty"`
	Strategy       reconcile.Strategy   `json:"balance_strategy"`
	Balance        *decimal.Decimal     `json:"balance,omitempty"`
	ArchiveURI     string               `json:"archive_uri,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
}

// ImportServicer defines the contract for statement import.
type ImportServicer interface {
	ImportStatement(ctx context.Context, userID string, req ImportRequest) (*ImportResult, error)
}

// ReviewRequest selects which transactions to send for review.
type ReviewRequest struct {
	Filter       TransactionFilter
	Instructions string
	Limit        int
}

// ReviewResult is the outcome of a review run.
type ReviewResult struct {
	Reviewed    int                  `json:"reviewed"`
	Batches     int                  `json:"batches"`
	Suggestions []advisor.Suggestion `json:"suggestions"`
}

// ApplyResult reports which suggestions were applied.
type ApplyResult struct {
	Applied  int      `json:"applied"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

// ReviewServicer defines the contract for AI-assisted review.
type ReviewServicer interface {
	Review(ctx context.Context, userID string, req ReviewRequest) (*ReviewResult, error)
	ApplySuggestions(ctx context.Context, userID string, suggestions []advisor.Suggestion) (*ApplyResult, error)
	ScanReceipt(ctx context.Context, userID string, image []byte, mimeType string) (*advisor.Receipt, error)
}

// ExportServicer defines the contract for CSV export.
type ExportServicer interface {
	ExportCSV(ctx context.Context, userID string, filter TransactionFilter, w io.Writer) (int, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}

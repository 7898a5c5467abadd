package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/store"
)

// budgetStore is what the budget service needs from the record store.
type budgetStore interface {
	store.BudgetStore
	SumAmounts(ctx context.Context, userID string, f store.TransactionFilter) (decimal.Decimal, error)
}

// budgetService handles budget-related business logic.
type budgetService struct {
	store budgetStore
	now   func() time.Time
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(s budgetStore) BudgetServicer {
	return &budgetService{store: s, now: time.Now}
}

// CreateBudget creates a new budget for a category.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
	}
	period := in.Period
	if period == "" {
		period = models.BudgetPeriodMonthly
	}
	if period != models.BudgetPeriodMonthly && period != models.BudgetPeriodYearly {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be monthly or yearly")
	}
	start := in.StartDate
	if start.IsZero() {
		start = models.NewDate(s.now())
	}
	if in.EndDate != nil && in.EndDate.Before(start) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = category
	}

	budget := &models.Budget{
		UserID:    userID,
		Category:  category,
		Name:      name,
		Amount:    amount,
		Period:    period,
		StartDate: start,
		EndDate:   in.EndDate,
		IsActive:  true,
	}
	if err := s.store.InsertBudget(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

// GetUserBudgets retrieves a paginated, filtered list of budgets for a user.
func (s *budgetService) GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest, filter store.BudgetFilter) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	rows, total, err := s.store.PageBudgets(ctx, userID, filter, page)
	if err != nil {
		return nil, err
	}
	result := pagination.NewPageResponse(rows, page.Page, page.PageSize, total)
	return &result, nil
}

// GetBudgetByID retrieves a budget by ID for a specific user.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	return s.store.GetBudget(ctx, userID, budgetID)
}

// UpdateBudget updates an existing budget's fields.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetUpdate) (*models.Budget, error) {
	budget, err := s.store.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		budget.Name = strings.TrimSpace(*in.Name)
	}
	if in.Amount != nil {
		amount := in.Amount.Round(2)
		if !amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
		}
		budget.Amount = amount
	}
	if in.Period != nil {
		if *in.Period != models.BudgetPeriodMonthly && *in.Period != models.BudgetPeriodYearly {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be monthly or yearly")
		}
		budget.Period = *in.Period
	}
	if in.EndDate != nil {
		if in.EndDate.Before(budget.StartDate) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
		}
		budget.EndDate = in.EndDate
	}
	if in.IsActive != nil {
		budget.IsActive = *in.IsActive
	}

	if err := s.store.UpdateBudget(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	return s.store.DeleteBudget(ctx, userID, budgetID)
}

// GetBudgetProgress calculates spending vs budget for the current period.
// Spent is the sum of expenses labelled with the budget's category.
func (s *budgetService) GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.store.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	start, end := periodWindow(budget.Period, s.now())
	expense := models.TransactionTypeExpense
	spent, err := s.store.SumAmounts(ctx, userID, store.TransactionFilter{
		Type:     &expense,
		Category: &budget.Category,
		From:     &start,
		To:       &end,
	})
	if err != nil {
		return nil, err
	}

	var percentage float64
	if budget.Amount.IsPositive() {
		percentage = spent.Div(budget.Amount).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	return &BudgetProgress{
		BudgetID:    budget.ID,
		Category:    budget.Category,
		PeriodStart: start,
		PeriodEnd:   end,
		Budgeted:    budget.Amount,
		Spent:       spent,
		Remaining:   budget.Amount.Sub(spent),
		Percentage:  percentage,
	}, nil
}

// periodWindow returns the first and last day of the period containing now.
func periodWindow(period models.BudgetPeriod, now time.Time) (models.Date, models.Date) {
	if period == models.BudgetPeriodYearly {
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return models.NewDate(start), models.NewDate(start.AddDate(1, 0, -1))
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return models.NewDate(start), models.NewDate(start.AddDate(0, 1, -1))
}

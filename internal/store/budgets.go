package store

import (
	"context"

	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
)

func (s *GormStore) budgets(ctx context.Context, userID string, f BudgetFilter) *gorm.DB {
	q := s.conn(ctx).Model(&models.Budget{}).Where("user_id = ?", userID)
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.Period != nil {
		q = q.Where("period = ?", *f.Period)
	}
	return q
}

// ListBudgets returns all matching budgets, newest first.
func (s *GormStore) ListBudgets(ctx context.Context, userID string, f BudgetFilter) ([]models.Budget, error) {
	var rows []models.Budget
	if err := s.budgets(ctx, userID, f).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, wrap(err, nil)
	}
	return rows, nil
}

// BudgetSorts are the sort keys the budget list accepts.
var BudgetSorts = pagination.Columns{
	"name":       "name",
	"category":   "category",
	"amount":     "amount",
	"start_date": "start_date",
	"created":    "created_at",
}

// PageBudgets returns one page of matching budgets and the total count.
func (s *GormStore) PageBudgets(ctx context.Context, userID string, f BudgetFilter, page pagination.PageRequest) ([]models.Budget, int64, error) {
	page.Defaults()

	var total int64
	if err := s.budgets(ctx, userID, f).Count(&total).Error; err != nil {
		return nil, 0, wrap(err, nil)
	}
	var rows []models.Budget
	if err := s.budgets(ctx, userID, f).
		Scopes(pagination.Paginate(page), BudgetSorts.Order(page.Sort, "created_at DESC")).
		Find(&rows).Error; err != nil {
		return nil, 0, wrap(err, nil)
	}
	return rows, total, nil
}

// GetBudget reads one budget.
func (s *GormStore) GetBudget(ctx context.Context, userID, id string) (*models.Budget, error) {
	var b models.Budget
	if err := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&b).Error; err != nil {
		return nil, wrap(err, apperrors.ErrBudgetNotFound)
	}
	return &b, nil
}

// InsertBudget creates a budget.
func (s *GormStore) InsertBudget(ctx context.Context, b *models.Budget) error {
	return wrap(s.conn(ctx).Create(b).Error, nil)
}

// UpdateBudget writes the editable fields of b.
func (s *GormStore) UpdateBudget(ctx context.Context, b *models.Budget) error {
	res := s.conn(ctx).Model(&models.Budget{}).
		Where("id = ? AND user_id = ?", b.ID, b.UserID).
		Updates(map[string]any{
			"name":      b.Name,
			"category":  b.Category,
			"amount":    b.Amount,
			"period":    b.Period,
			"end_date":  b.EndDate,
			"is_active": b.IsActive,
		})
	return checkAffected(res, apperrors.ErrBudgetNotFound)
}

// DeleteBudget soft-deletes a budget.
func (s *GormStore) DeleteBudget(ctx context.Context, userID, id string) error {
	res := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Budget{})
	return checkAffected(res, apperrors.ErrBudgetNotFound)
}

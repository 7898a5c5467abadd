package store

import (
	"context"

	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
)

// ListCategories returns the user's categories by name.
func (s *GormStore) ListCategories(ctx context.Context, userID string) ([]models.Category, error) {
	var rows []models.Category
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, wrap(err, nil)
	}
	return rows, nil
}

// GetCategory reads one category.
func (s *GormStore) GetCategory(ctx context.Context, userID, id string) (*models.Category, error) {
	var c models.Category
	if err := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		return nil, wrap(err, apperrors.ErrCategoryNotFound)
	}
	return &c, nil
}

// FindCategoryByName looks a category up ignoring case.
func (s *GormStore) FindCategoryByName(ctx context.Context, userID, name string) (*models.Category, error) {
	var c models.Category
	err := s.conn(ctx).
		Where("user_id = ? AND LOWER(name) = LOWER(?)", userID, name).
		First(&c).Error
	if err != nil {
		return nil, wrap(err, apperrors.ErrCategoryNotFound)
	}
	return &c, nil
}

// InsertCategory creates a category.
func (s *GormStore) InsertCategory(ctx context.Context, c *models.Category) error {
	return wrap(s.conn(ctx).Create(c).Error, nil)
}

// UpdateCategory writes c. Transactions and budgets reference categories by
// name, so when the name changes every row labelled previousName (ignoring
// case) is relabelled in the same database transaction. It returns the
// number of relabelled transactions.
func (s *GormStore) UpdateCategory(ctx context.Context, c *models.Category, previousName string) (int64, error) {
	var renamed int64
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Category{}).
			Where("id = ? AND user_id = ?", c.ID, c.UserID).
			Updates(map[string]any{"name": c.Name, "type": c.Type, "color": c.Color})
		if err := checkAffected(res, apperrors.ErrCategoryNotFound); err != nil {
			return err
		}
		if previousName == "" || previousName == c.Name {
			return nil
		}

		res = tx.Model(&models.Transaction{}).
			Where("user_id = ? AND LOWER(category) = LOWER(?)", c.UserID, previousName).
			Update("category", c.Name)
		if res.Error != nil {
			return res.Error
		}
		renamed = res.RowsAffected

		return tx.Model(&models.Budget{}).
			Where("user_id = ? AND LOWER(category) = LOWER(?)", c.UserID, previousName).
			Update("category", c.Name).Error
	})
	if err != nil {
		return 0, wrap(err, apperrors.ErrCategoryNotFound)
	}
	return renamed, nil
}

// DeleteCategory soft-deletes a category.
func (s *GormStore) DeleteCategory(ctx context.Context, userID, id string) error {
	res := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Category{})
	return checkAffected(res, apperrors.ErrCategoryNotFound)
}

// CountTransactionsInCategory counts rows labelled name, ignoring case.
func (s *GormStore) CountTransactionsInCategory(ctx context.Context, userID, name string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND LOWER(category) = LOWER(?)", userID, name).
		Count(&n).Error
	return n, wrap(err, nil)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/store"
)

// categoryService handles category-related business logic.
type categoryService struct {
	store store.CategoryStore
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(s store.CategoryStore) CategoryServicer {
	return &categoryService{store: s}
}

// CreateCategory creates a new category. Names are unique per user ignoring case.
func (s *categoryService) CreateCategory(ctx context.Context, userID, name string, categoryType models.CategoryType, color string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if err := s.ensureNameFree(ctx, userID, name, ""); err != nil {
		return nil, err
	}

	category := &models.Category{
		UserID: userID,
		Name:   name,
		Type:   categoryType,
		Color:  color,
	}
	if err := s.store.InsertCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// GetUserCategories lists the user's categories, optionally of one type.
func (s *categoryService) GetUserCategories(ctx context.Context, userID string, categoryType *models.CategoryType) ([]models.Category, error) {
	all, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	if categoryType == nil {
		return all, nil
	}
	filtered := make([]models.Category, 0, len(all))
	for _, c := range all {
		if c.Type == *categoryType {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// GetCategoryByID retrieves a category by ID for a specific user.
func (s *categoryService) GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	return s.store.GetCategory(ctx, userID, categoryID)
}

// UpdateCategory changes a category. A rename relabels every transaction and
// budget that used the old name; the number of relabelled transactions is
// returned.
func (s *categoryService) UpdateCategory(ctx context.Context, userID, categoryID string, name string, categoryType *models.CategoryType, color string) (*models.Category, int64, error) {
	category, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, 0, err
	}
	previousName := category.Name

	if name = strings.TrimSpace(name); name != "" && name != category.Name {
		if err := s.ensureNameFree(ctx, userID, name, category.ID); err != nil {
			return nil, 0, err
		}
		category.Name = name
	}
	if categoryType != nil {
		category.Type = *categoryType
	}
	if color != "" {
		category.Color = color
	}

	renamed, err := s.store.UpdateCategory(ctx, category, previousName)
	if err != nil {
		return nil, 0, err
	}
	if renamed > 0 {
		logger.Get().Infow("category renamed",
			"user_id", userID,
			"category_id", categoryID,
			"from", previousName,
			"to", category.Name,
			"transactions", renamed,
		)
	}
	return category, renamed, nil
}

// DeleteCategory removes a category that no transaction uses.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	category, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	n, err := s.store.CountTransactionsInCategory(ctx, userID, category.Name)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperrors.WithMessage(apperrors.ErrCategoryInUse,
			fmt.Sprintf("category %q is used by %d transaction(s)", category.Name, n))
	}
	return s.store.DeleteCategory(ctx, userID, categoryID)
}

// ensureNameFree fails with ErrDuplicateCategory when another category
// already has name. selfID is ignored so a category can change only the case
// of its own name.
func (s *categoryService) ensureNameFree(ctx context.Context, userID, name, selfID string) error {
	existing, err := s.store.FindCategoryByName(ctx, userID, name)
	switch {
	case errors.Is(err, apperrors.ErrCategoryNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	}
	return apperrors.ErrDuplicateCategory
}

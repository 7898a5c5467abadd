package store

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
)

// ListAccounts returns the user's accounts by name.
func (s *GormStore) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	var rows []models.Account
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, wrap(err, nil)
	}
	return rows, nil
}

// GetAccount reads one account straight from the store. Callers that are
// about to write a balance rely on this never being cached.
func (s *GormStore) GetAccount(ctx context.Context, userID, id string) (*models.Account, error) {
	var a models.Account
	if err := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		return nil, wrap(err, apperrors.ErrAccountNotFound)
	}
	return &a, nil
}

// InsertAccount creates an account.
func (s *GormStore) InsertAccount(ctx context.Context, a *models.Account) error {
	return wrap(s.conn(ctx).Create(a).Error, nil)
}

// UpdateAccount writes the descriptive fields. Balance is only ever changed
// through SetAccountBalance.
func (s *GormStore) UpdateAccount(ctx context.Context, a *models.Account) error {
	res := s.conn(ctx).Model(&models.Account{}).
		Where("id = ? AND user_id = ?", a.ID, a.UserID).
		Updates(map[string]any{
			"name":  a.Name,
			"type":  a.Type,
			"color": a.Color,
		})
	return checkAffected(res, apperrors.ErrAccountNotFound)
}

// SetAccountBalance overwrites the stored balance.
func (s *GormStore) SetAccountBalance(ctx context.Context, userID, id string, balance decimal.Decimal) error {
	res := s.conn(ctx).Model(&models.Account{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("balance", balance)
	return checkAffected(res, apperrors.ErrAccountNotFound)
}

// DeleteAccount removes the account. Its transactions are kept and lose
// their link; the number of unlinked rows is returned.
func (s *GormStore) DeleteAccount(ctx context.Context, userID, id string) (int64, error) {
	var unlinked int64
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Account{})
		if err := checkAffected(res, apperrors.ErrAccountNotFound); err != nil {
			return err
		}
		res = tx.Model(&models.Transaction{}).
			Where("user_id = ? AND account_id = ?", userID, id).
			Update("account_id", nil)
		if res.Error != nil {
			return res.Error
		}
		unlinked = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, wrap(err, apperrors.ErrAccountNotFound)
	}
	return unlinked, nil
}

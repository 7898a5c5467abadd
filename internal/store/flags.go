package store

import (
	"context"
	"time"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
)

// InsertFlag records a known balance inconsistency.
func (s *GormStore) InsertFlag(ctx context.Context, f *models.ReconciliationFlag) error {
	return wrap(s.conn(ctx).Create(f).Error, nil)
}

// ListFlags returns flags for the user, optionally for one account and only
// unresolved ones. An empty accountID means every account.
func (s *GormStore) ListFlags(ctx context.Context, userID, accountID string, openOnly bool) ([]models.ReconciliationFlag, error) {
	q := s.conn(ctx).Where("user_id = ?", userID)
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	if openOnly {
		q = q.Where("resolved_at IS NULL")
	}
	var rows []models.ReconciliationFlag
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, wrap(err, nil)
	}
	return rows, nil
}

// ResolveFlag marks a flag as dealt with and returns it.
func (s *GormStore) ResolveFlag(ctx context.Context, userID, id string, at time.Time) (*models.ReconciliationFlag, error) {
	res := s.conn(ctx).Model(&models.ReconciliationFlag{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("resolved_at", at)
	if err := checkAffected(res, apperrors.ErrFlagNotFound); err != nil {
		return nil, err
	}
	var f models.ReconciliationFlag
	if err := s.conn(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, wrap(err, apperrors.ErrFlagNotFound)
	}
	return &f, nil
}

// InsertAuditLog writes one audit entry.
func (s *GormStore) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return wrap(s.conn(ctx).Create(entry).Error, nil)
}

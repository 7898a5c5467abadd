package store

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
)

const insertBatchSize = 200

// TransactionSorts are the sort keys the transaction list accepts.
var TransactionSorts = pagination.Columns{
	"date":     "date",
	"amount":   "amount",
	"category": "category",
	"created":  "created_at",
}

// effectExpr is the signed effect of a row on its account.
const effectExpr = "CASE WHEN type = 'income' THEN amount ELSE -amount END"

func applyTransactionFilter(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Category != nil {
		q = q.Where("LOWER(category) = LOWER(?)", *f.Category)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("(LOWER(description) LIKE LOWER(?) OR LOWER(notes) LIKE LOWER(?))", like, like)
	}
	return q
}

func (s *GormStore) transactions(ctx context.Context, userID string, f TransactionFilter) *gorm.DB {
	q := s.conn(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	return applyTransactionFilter(q, f)
}

// ListTransactions returns every matching transaction, newest first.
func (s *GormStore) ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]models.Transaction, error) {
	var rows []models.Transaction
	if err := s.transactions(ctx, userID, f).Order("date DESC, created_at DESC").Find(&rows).Error; err != nil {
		return nil, wrap(err, nil)
	}
	return rows, nil
}

// PageTransactions returns one page of matching transactions and the total count.
func (s *GormStore) PageTransactions(ctx context.Context, userID string, f TransactionFilter, page pagination.PageRequest) ([]models.Transaction, int64, error) {
	page.Defaults()

	var total int64
	if err := s.transactions(ctx, userID, f).Count(&total).Error; err != nil {
		return nil, 0, wrap(err, nil)
	}

	var rows []models.Transaction
	if err := s.transactions(ctx, userID, f).
		Scopes(pagination.Paginate(page), TransactionSorts.Order(page.Sort, "date DESC, created_at DESC")).
		Find(&rows).Error; err != nil {
		return nil, 0, wrap(err, nil)
	}
	return rows, total, nil
}

// GetTransaction reads one transaction straight from the store.
func (s *GormStore) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&t).Error; err != nil {
		return nil, wrap(err, apperrors.ErrTransactionNotFound)
	}
	return &t, nil
}

// InsertTransaction creates one row.
func (s *GormStore) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	return wrap(s.conn(ctx).Create(t).Error, nil)
}

// InsertTransactions creates all rows in a single call. Either every row is
// written or none is.
func (s *GormStore) InsertTransactions(ctx context.Context, rows []models.Transaction) error {
	if len(rows) == 0 {
		return nil
	}
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	return wrap(err, nil)
}

// UpdateTransaction overwrites the editable fields of t.
func (s *GormStore) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	res := s.conn(ctx).Model(&models.Transaction{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(map[string]any{
			"account_id":  t.AccountID,
			"date":        t.Date,
			"amount":      t.Amount,
			"type":        t.Type,
			"category":    t.Category,
			"description": t.Description,
			"notes":       t.Notes,
		})
	return checkAffected(res, apperrors.ErrTransactionNotFound)
}

// DeleteTransaction soft-deletes one row.
func (s *GormStore) DeleteTransaction(ctx context.Context, userID, id string) error {
	res := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Transaction{})
	return checkAffected(res, apperrors.ErrTransactionNotFound)
}

// SumAmounts adds up the unsigned amounts of matching rows.
func (s *GormStore) SumAmounts(ctx context.Context, userID string, f TransactionFilter) (decimal.Decimal, error) {
	return s.sum(ctx, userID, f, "amount")
}

// SumEffects adds up the signed effects of matching rows.
func (s *GormStore) SumEffects(ctx context.Context, userID string, f TransactionFilter) (decimal.Decimal, error) {
	return s.sum(ctx, userID, f, effectExpr)
}

func (s *GormStore) sum(ctx context.Context, userID string, f TransactionFilter, expr string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	row := s.transactions(ctx, userID, f).Select("SUM(" + expr + ")").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, wrap(err, nil)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	// Some drivers hand SUM back as a float.
	return total.Decimal.Round(2), nil
}

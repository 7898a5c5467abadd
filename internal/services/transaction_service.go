package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/store"
)

// Sources recorded on reconciliation flags.
const (
	sourceCreate = "create"
	sourceUpdate = "update"
	sourceDelete = "delete"
	sourceImport = "import"
)

// transactionService handles transaction-related business logic.
//
// Every mutation of a linked transaction is paired with balance deltas pushed
// through the account service. Each delta is its own read-then-write round
// trip; nothing spans the phases, so a failure part way through leaves the
// earlier phases applied and records a reconciliation flag.
type transactionService struct {
	store          store.TransactionStore
	accountService AccountServicer
	now            func() time.Time
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(s store.TransactionStore, accountService AccountServicer) TransactionServicer {
	return &transactionService{
		store:          s,
		accountService: accountService,
		now:            time.Now,
	}
}

// CreateTransaction inserts a transaction and applies its effect to the
// linked account. When the row is written but the balance is not, for any
// reason, the row is returned together with an ErrBalanceUpdate error.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error) {
	transaction, err := s.buildTransaction(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	if err := s.store.InsertTransaction(ctx, transaction); err != nil {
		return nil, err
	}

	if transaction.AccountID == nil {
		return transaction, nil
	}
	effect := transaction.Effect()
	if _, err := s.accountService.ApplyDelta(ctx, userID, *transaction.AccountID, effect); err != nil {
		s.accountService.FlagInconsistency(ctx, &models.ReconciliationFlag{
			UserID:    userID,
			AccountID: *transaction.AccountID,
			Kind:      models.FlagBalanceUpdateFailed,
			Source:    sourceCreate,
			Delta:     effect,
			Message:   fmt.Sprintf("transaction %s was saved but the balance was not adjusted: %v", transaction.ID, err),
		})
		if !errors.Is(err, apperrors.ErrBalanceUpdate) {
			err = apperrors.Wrap(apperrors.ErrBalanceUpdate, err)
		}
		return transaction, err
	}
	return transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	if filter.AccountID != nil {
		if _, err := s.accountService.GetAccountByID(ctx, userID, *filter.AccountID); err != nil {
			return nil, err
		}
	}

	rows, total, err := s.store.PageTransactions(ctx, userID, filter, page)
	if err != nil {
		return nil, err
	}
	result := pagination.NewPageResponse(rows, page.Page, page.PageSize, total)
	return &result, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user.
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, transactionID)
}

// UpdateTransaction replaces a transaction with the given state.
//
// The stored row, not any cached copy, is the state being replaced. Its
// effect is reverted on its old account first, then the new effect is
// applied to the new account, and only after both succeed is the row
// written. A failed revert changes nothing. A failed apply leaves the old
// account reverted and the row untouched, and is flagged.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, in TransactionInput) (*models.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	updated, err := s.buildTransaction(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	updated.Base = existing.Base

	// Phase 1: revert.
	if existing.AccountID != nil {
		if _, err := s.accountService.ApplyDelta(ctx, userID, *existing.AccountID, existing.Effect().Neg()); err != nil {
			return nil, err
		}
	}

	// Phase 2: apply.
	if updated.AccountID != nil {
		if _, err := s.accountService.ApplyDelta(ctx, userID, *updated.AccountID, updated.Effect()); err != nil {
			if existing.AccountID != nil {
				s.accountService.FlagInconsistency(ctx, &models.ReconciliationFlag{
					UserID:    userID,
					AccountID: *existing.AccountID,
					Kind:      models.FlagPartialMutation,
					Source:    sourceUpdate,
					Delta:     existing.Effect(),
					Message:   fmt.Sprintf("transaction %s was reverted but its new state was not applied: %v", existing.ID, err),
				})
			}
			return nil, err
		}
	}

	if err := s.store.UpdateTransaction(ctx, updated); err != nil {
		s.flagUnwrittenUpdate(ctx, existing, updated, err)
		return nil, err
	}
	return updated, nil
}

// flagUnwrittenUpdate records that both balance phases of an update ran but
// the row still holds its old state.
func (s *transactionService) flagUnwrittenUpdate(ctx context.Context, existing, updated *models.Transaction, cause error) {
	msg := fmt.Sprintf("balances were moved for transaction %s but the row was not updated: %v", existing.ID, cause)
	if existing.AccountID != nil {
		s.accountService.FlagInconsistency(ctx, &models.ReconciliationFlag{
			UserID:    existing.UserID,
			AccountID: *existing.AccountID,
			Kind:      models.FlagPartialMutation,
			Source:    sourceUpdate,
			Delta:     existing.Effect(),
			Message:   msg,
		})
	}
	if updated.AccountID != nil {
		s.accountService.FlagInconsistency(ctx, &models.ReconciliationFlag{
			UserID:    existing.UserID,
			AccountID: *updated.AccountID,
			Kind:      models.FlagPartialMutation,
			Source:    sourceUpdate,
			Delta:     updated.Effect().Neg(),
			Message:   msg,
		})
	}
}

// DeleteTransaction reverses the transaction's effect on its linked account,
// then removes the row.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	transaction, err := s.store.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return err
	}

	if transaction.AccountID != nil {
		if _, err := s.accountService.ApplyDelta(ctx, userID, *transaction.AccountID, transaction.Effect().Neg()); err != nil {
			return err
		}
	}

	if err := s.store.DeleteTransaction(ctx, userID, transactionID); err != nil {
		if transaction.AccountID != nil {
			s.accountService.FlagInconsistency(ctx, &models.ReconciliationFlag{
				UserID:    userID,
				AccountID: *transaction.AccountID,
				Kind:      models.FlagPartialMutation,
				Source:    sourceDelete,
				Delta:     transaction.Effect(),
				Message:   fmt.Sprintf("transaction %s was reversed on its account but not deleted: %v", transaction.ID, err),
			})
		}
		return err
	}

	logger.Get().Debugw("transaction deleted", "user_id", userID, "transaction_id", transactionID)
	return nil
}

// buildTransaction validates input and resolves the linked account.
func (s *transactionService) buildTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error) {
	amount := in.Amount.Round(2)
	if !amount.GreaterThan(decimal.Zero) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !in.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}

	date := in.Date
	if date.IsZero() {
		date = models.NewDate(s.now())
	}

	var accountID *string
	if in.AccountID != nil && *in.AccountID != "" {
		account, err := s.accountService.GetAccountByID(ctx, userID, *in.AccountID)
		if err != nil {
			return nil, err
		}
		accountID = &account.ID
	}

	return &models.Transaction{
		UserID:      userID,
		AccountID:   accountID,
		Date:        date,
		Amount:      amount,
		Type:        in.Type,
		Category:    models.NormalizeCategory(in.Category),
		Description: models.OptionalText(in.Description),
		Notes:       models.OptionalText(in.Notes),
	}, nil
}

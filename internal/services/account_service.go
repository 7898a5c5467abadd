package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/reconcile"
	"pennywise/internal/store"
)

// accountStore is what the account service needs from the record store.
type accountStore interface {
	store.AccountStore
	store.FlagStore
	SumEffects(ctx context.Context, userID string, f store.TransactionFilter) (decimal.Decimal, error)
}

// accountService handles account-related business logic.
type accountService struct {
	store accountStore
	now   func() time.Time
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(s accountStore) AccountServicer {
	return &accountService{store: s, now: time.Now}
}

// CreateAccount creates an account whose balance starts at its opening
// balance. No synthetic transaction is written for the opening amount.
func (s *accountService) CreateAccount(ctx context.Context, userID string, in AccountInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	account := &models.Account{
		UserID:         userID,
		Name:           name,
		Type:           in.Type,
		Color:          in.Color,
		Balance:        in.OpeningBalance,
		OpeningBalance: in.OpeningBalance,
	}
	if err := s.store.InsertAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// GetUserAccounts lists the user's accounts.
func (s *accountService) GetUserAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

// GetAccountByID retrieves an account by ID for a specific user.
func (s *accountService) GetAccountByID(ctx context.Context, userID, accountID string) (*models.Account, error) {
	return s.store.GetAccount(ctx, userID, accountID)
}

// UpdateAccount changes name, type and color. Empty fields are left alone;
// the balance is never touched here.
func (s *accountService) UpdateAccount(ctx context.Context, userID, accountID string, in AccountInput) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		account.Name = name
	}
	if in.Type != "" {
		account.Type = in.Type
	}
	if in.Color != "" {
		account.Color = in.Color
	}
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes the account; its transactions stay and lose the link.
func (s *accountService) DeleteAccount(ctx context.Context, userID, accountID string) error {
	unlinked, err := s.store.DeleteAccount(ctx, userID, accountID)
	if err != nil {
		return err
	}
	logger.Get().Infow("account deleted", "user_id", userID, "account_id", accountID, "unlinked_transactions", unlinked)
	return nil
}

// ApplyDelta adds delta to the account's freshly read balance. Any failure is
// reported as ErrBalanceUpdate; a missing account stays ErrAccountNotFound.
func (s *accountService) ApplyDelta(ctx context.Context, userID, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	balance, err := reconcile.ApplyDelta(ctx, s.store, userID, accountID, delta)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return decimal.Zero, apperrors.ErrAccountNotFound
		}
		return decimal.Zero, apperrors.Wrap(apperrors.ErrBalanceUpdate, err)
	}
	return balance, nil
}

// Reconcile compares the stored balance with opening balance plus the signed
// sum of every linked transaction.
func (s *accountService) Reconcile(ctx context.Context, userID, accountID string) (*ReconciliationReport, error) {
	account, err := s.store.GetAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	net, err := s.store.SumEffects(ctx, userID, store.TransactionFilter{AccountID: &accountID})
	if err != nil {
		return nil, err
	}
	flags, err := s.store.ListFlags(ctx, userID, accountID, true)
	if err != nil {
		return nil, err
	}

	expected := account.OpeningBalance.Add(net)
	drift := account.Balance.Sub(expected)
	return &ReconciliationReport{
		AccountID:       account.ID,
		StoredBalance:   account.Balance,
		OpeningBalance:  account.OpeningBalance,
		TransactionNet:  net,
		ExpectedBalance: expected,
		Drift:           drift,
		InSync:          drift.IsZero(),
		OpenFlags:       flags,
	}, nil
}

// FlagInconsistency records a known balance inconsistency. It never fails the
// caller: if even the flag cannot be written the event is only logged.
func (s *accountService) FlagInconsistency(ctx context.Context, flag *models.ReconciliationFlag) {
	logger.Get().Warnw("account balance out of step with transactions",
		"user_id", flag.UserID,
		"account_id", flag.AccountID,
		"kind", flag.Kind,
		"source", flag.Source,
		"delta", flag.Delta.String(),
		"message", flag.Message,
	)
	if err := s.store.InsertFlag(ctx, flag); err != nil {
		logger.Get().Errorw("failed to record reconciliation flag",
			"error", err,
			"user_id", flag.UserID,
			"account_id", flag.AccountID,
		)
	}
}

// GetFlags lists reconciliation flags. An empty accountID means all accounts.
func (s *accountService) GetFlags(ctx context.Context, userID, accountID string, openOnly bool) ([]models.ReconciliationFlag, error) {
	return s.store.ListFlags(ctx, userID, accountID, openOnly)
}

// ResolveFlag marks a flag as dealt with.
func (s *accountService) ResolveFlag(ctx context.Context, userID, flagID string) (*models.ReconciliationFlag, error) {
	return s.store.ResolveFlag(ctx, userID, flagID, s.now())
}

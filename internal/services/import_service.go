package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pennywise/internal/archive"
	"pennywise/internal/csvimport"
	"pennywise/internal/dedupe"
	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/reconcile"
	"pennywise/internal/session"
)

// importStore is what the import service writes to.
type importStore interface {
	reconcile.BalanceStore
	InsertTransactions(ctx context.Context, rows []models.Transaction) error
}

// importService turns an uploaded statement into transactions and brings the
// linked account's balance in line with it.
type importService struct {
	store          importStore
	accountService AccountServicer
	sessions       *session.Registry
	archiver       archive.Archiver
	maxBytes       int64
}

// NewImportService creates a new ImportServicer. A nil archiver disables
// archiving; maxBytes <= 0 disables the size check.
func NewImportService(s importStore, accountService AccountServicer, sessions *session.Registry, archiver archive.Archiver, maxBytes int64) ImportServicer {
	if archiver == nil {
		archiver = archive.Nop{}
	}
	return &importService{
		store:          s,
		accountService: accountService,
		sessions:       sessions,
		archiver:       archiver,
		maxBytes:       maxBytes,
	}
}

// ImportStatement parses req.Data, drops rows already in the user's history,
// inserts the rest in one call and then updates the account balance.
//
// The insert and the balance write are separate round trips. If the balance
// write fails the rows stay, the failure is returned as a warning on the
// result and a reconciliation flag is recorded.
func (s *importService) ImportStatement(ctx context.Context, userID string, req ImportRequest) (*ImportResult, error) {
	if len(bytes.TrimSpace(req.Data)) == 0 {
		return nil, apperrors.ErrEmptyFile
	}
	if s.maxBytes > 0 && int64(len(req.Data)) > s.maxBytes {
		return nil, apperrors.ErrFileTooLarge
	}

	var accountID *string
	if req.AccountID != nil && *req.AccountID != "" {
		account, err := s.accountService.GetAccountByID(ctx, userID, *req.AccountID)
		if err != nil {
			return nil, err
		}
		accountID = &account.ID
	}

	result := &ImportResult{Strategy: reconcile.StrategyNone}

	result.ArchiveURI = req.ArchiveURI
	if result.ArchiveURI == "" {
		uri, err := s.archiver.Archive(ctx, userID, req.Filename, req.Data)
		if err != nil {
			logger.Get().Warnw("statement archive failed", "error", err, "user_id", userID, "filename", req.Filename)
			result.Warnings = append(result.Warnings, "the original file could not be archived")
		}
		result.ArchiveURI = uri
	}

	state := s.sessions.For(userID)
	if err := state.Reload(ctx); err != nil {
		result.Warnings = append(result.Warnings, "existing history could not be fully loaded; duplicate detection may miss rows")
	}
	index := dedupe.NewIndex(state.Transactions())

	rows, tracker, err := s.collect(userID, accountID, req.Data, index, result)
	if err != nil {
		return nil, err
	}

	if err := s.store.InsertTransactions(ctx, rows); err != nil {
		return nil, err
	}
	result.Imported = len(rows)
	result.NetAmount = tracker.Net()
	if len(rows) > 0 {
		latest := tracker.LatestDate()
		result.LatestDate = &latest
	}

	if accountID != nil {
		s.applyBalance(ctx, userID, *accountID, tracker, result)
	}

	if len(rows) > 0 {
		_ = state.Reload(ctx)
	}

	logger.Get().Infow("statement imported",
		"user_id", userID,
		"format", result.Format,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"skipped", result.Skipped,
		"net", result.NetAmount.String(),
		"strategy", result.Strategy,
	)
	return result, nil
}

// collect reads every row, keeps the ones not already in index and feeds the
// balance tracker. Running balances count from every parsed row, duplicates
// included.
func (s *importService) collect(userID string, accountID *string, data []byte, index *dedupe.Index, result *ImportResult) ([]models.Transaction, *reconcile.Tracker, error) {
	reader := csvimport.NewReader(bytes.NewReader(data))
	tracker := &reconcile.Tracker{}
	var rows []models.Transaction

	for draft := range reader.All() {
		if draft.RunningBalance != nil {
			tracker.ObserveBalance(draft.Date, *draft.RunningBalance)
		}
		if index.Contains(draft.Date, draft.Amount, draft.Description) {
			result.Duplicates++
			continue
		}
		tracker.Include(draft.Date, draft.Effect())
		rows = append(rows, models.Transaction{
			UserID:      userID,
			AccountID:   accountID,
			Date:        draft.Date,
			Amount:      draft.Amount,
			Type:        draft.Type,
			Category:    models.NormalizeCategory(draft.Category),
			Description: models.OptionalText(draft.Description),
		})
	}
	if err := reader.Err(); err != nil {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("could not read file: %v", err))
	}

	result.Format = reader.Format()
	result.Skipped = reader.Skipped()
	result.RowErrors = reader.RowErrors()
	if bal, ok := tracker.RunningBalance(); ok {
		result.RunningBalance = &bal
	}
	return rows, tracker, nil
}

// applyBalance runs the tracker's plan. A failure never fails the import.
func (s *importService) applyBalance(ctx context.Context, userID, accountID string, tracker *reconcile.Tracker, result *ImportResult) {
	plan := tracker.Plan()
	result.Strategy = plan.Strategy
	if plan.Strategy == reconcile.StrategyNone {
		return
	}

	outcome, err := reconcile.Apply(ctx, s.store, userID, accountID, plan)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d transaction(s) were imported but the account balance could not be updated", result.Imported))
		s.accountService.FlagInconsistency(ctx, &models.ReconciliationFlag{
			UserID:    userID,
			AccountID: accountID,
			Kind:      models.FlagBalanceUpdateFailed,
			Source:    sourceImport,
			Delta:     expectedDelta(plan, tracker),
			Message:   fmt.Sprintf("%s balance update after importing %d row(s) failed: %v", plan.Strategy, result.Imported, err),
		})
		return
	}
	balance := outcome.Balance
	result.Balance = &balance
}

// expectedDelta is what the flag should carry: the net for an incremental
// plan, or the batch net as a best guess for an absolute one.
func expectedDelta(plan reconcile.Plan, tracker *reconcile.Tracker) decimal.Decimal {
	if plan.Strategy == reconcile.StrategyIncremental {
		return plan.Delta
	}
	return tracker.Net()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pennywise/internal/advisor"
	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/session"
	"pennywise/internal/store"
)

const (
	defaultReviewBatchSize = 25
	maxReviewImageBytes    = 10 << 20
)

// reviewService sends transactions to the suggestion service in fixed-size
// chunks and applies accepted suggestions through the transaction service.
type reviewService struct {
	store              store.TransactionStore
	sessions           *session.Registry
	suggester          advisor.Suggester
	transactionService TransactionServicer
	batchSize          int
	batchDelay         time.Duration
	sleep              func(ctx context.Context, d time.Duration) error
}

// NewReviewService creates a new ReviewServicer. A nil suggester makes every
// call fail with ErrAIUnavailable.
func NewReviewService(
	s store.TransactionStore,
	sessions *session.Registry,
	suggester advisor.Suggester,
	transactionService TransactionServicer,
	batchSize int,
	batchDelay time.Duration,
) ReviewServicer {
	if batchSize <= 0 {
		batchSize = defaultReviewBatchSize
	}
	return &reviewService{
		store:              s,
		sessions:           sessions,
		suggester:          suggester,
		transactionService: transactionService,
		batchSize:          batchSize,
		batchDelay:         batchDelay,
		sleep:              sleepContext,
	}
}

// Review asks for suggestions on the selected transactions. Chunks run one
// after another with a pause between them; the first failing chunk aborts
// the rest and nothing is returned.
func (s *reviewService) Review(ctx context.Context, userID string, req ReviewRequest) (*ReviewResult, error) {
	if s.suggester == nil {
		return nil, apperrors.ErrAIUnavailable
	}

	txs, err := s.store.ListTransactions(ctx, userID, req.Filter)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(txs) > req.Limit {
		txs = txs[:req.Limit]
	}

	state := s.sessions.For(userID)
	_ = state.Reload(ctx)
	snap := state.Snapshot()

	summaries := make([]advisor.Summary, len(txs))
	for i := range txs {
		summaries[i] = advisor.Summarize(&txs[i], snap.AccountName(txs[i].AccountID))
	}

	result := &ReviewResult{Reviewed: len(summaries), Suggestions: []advisor.Suggestion{}}
	for start := 0; start < len(summaries); start += s.batchSize {
		if start > 0 && s.batchDelay > 0 {
			if err := s.sleep(ctx, s.batchDelay); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrAIService, err)
			}
		}
		end := min(start+s.batchSize, len(summaries))

		suggestions, err := s.suggester.Suggest(ctx, summaries[start:end], req.Instructions)
		if err != nil {
			logger.Get().Warnw("review batch failed",
				"error", err,
				"user_id", userID,
				"batch", result.Batches+1,
				"batch_start", start,
			)
			return nil, apperrors.Wrap(apperrors.ErrAIService, err)
		}
		result.Batches++
		for _, sg := range suggestions {
			if !sg.Empty() {
				result.Suggestions = append(result.Suggestions, sg)
			}
		}
	}
	return result, nil
}

// ApplySuggestions applies each suggestion as an ordinary edit, so balances
// stay in step when a suggestion changes a transaction's type. A suggestion
// that cannot be applied is skipped with a warning; the rest still run.
func (s *reviewService) ApplySuggestions(ctx context.Context, userID string, suggestions []advisor.Suggestion) (*ApplyResult, error) {
	result := &ApplyResult{}
	for _, sg := range suggestions {
		if sg.Empty() {
			result.Skipped++
			continue
		}
		if err := s.applyOne(ctx, userID, sg); err != nil {
			result.Skipped++
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", sg.TransactionID, warningText(err)))
			continue
		}
		result.Applied++
	}
	if result.Applied > 0 {
		_ = s.sessions.For(userID).Reload(ctx)
	}
	return result, nil
}

func (s *reviewService) applyOne(ctx context.Context, userID string, sg advisor.Suggestion) error {
	current, err := s.transactionService.GetTransactionByID(ctx, userID, sg.TransactionID)
	if err != nil {
		return err
	}

	in := TransactionInput{
		AccountID:   current.AccountID,
		Date:        current.Date,
		Amount:      current.Amount,
		Type:        current.Type,
		Category:    current.Category,
		Description: current.DescriptionText(),
		Notes:       current.NotesText(),
	}
	if sg.Category != nil {
		in.Category = *sg.Category
	}
	if sg.Description != nil {
		in.Description = *sg.Description
	}
	if sg.Type != nil {
		in.Type = *sg.Type
	}

	_, err = s.transactionService.UpdateTransaction(ctx, userID, sg.TransactionID, in)
	return err
}

// ScanReceipt reads a receipt image into a draft transaction. Nothing is saved.
func (s *reviewService) ScanReceipt(ctx context.Context, userID string, image []byte, mimeType string) (*advisor.Receipt, error) {
	if s.suggester == nil {
		return nil, apperrors.ErrAIUnavailable
	}
	if len(image) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "image is required")
	}
	if len(image) > maxReviewImageBytes {
		return nil, apperrors.ErrFileTooLarge
	}

	state := s.sessions.For(userID)
	_ = state.Reload(ctx)
	var names []string
	for _, c := range state.Categories() {
		if c.Type == models.CategoryTypeExpense {
			names = append(names, c.Name)
		}
	}

	receipt, err := s.suggester.ScanReceipt(ctx, image, mimeType, names)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAIService, err)
	}
	return receipt, nil
}

// warningText returns the client-safe message of an AppError.
func warningText(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "could not be applied"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

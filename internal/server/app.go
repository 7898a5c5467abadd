// Package server wires the store, services, and HTTP routes together. The API
// binary and the CLI both build their stack through App.
package server

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pennywise/internal/advisor"
	"pennywise/internal/archive"
	"pennywise/internal/config"
	"pennywise/internal/logger"
	"pennywise/internal/services"
	"pennywise/internal/session"
	"pennywise/internal/store"
)

// App holds every service built over one database.
type App struct {
	Store        *store.GormStore
	Sessions     *session.Registry
	Accounts     services.AccountServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Budgets      services.BudgetServicer
	Imports      services.ImportServicer
	Review       services.ReviewServicer
	Export       services.ExportServicer
	Audit        services.AuditServicer
	Archiver     archive.Archiver
}

// Options are the optional collaborators of an App. Nil values disable the
// matching feature.
type Options struct {
	Suggester advisor.Suggester
	Archiver  archive.Archiver
}

// NewApp builds the service graph over db.
func NewApp(db *gorm.DB, cfg *config.Config, opts Options) *App {
	s := store.New(db)
	sessions := session.NewRegistry(s)
	archiver := opts.Archiver
	if archiver == nil {
		archiver = archive.Nop{}
	}

	accounts := services.NewAccountService(s)
	transactions := services.NewTransactionService(s, accounts)

	return &App{
		Store:        s,
		Sessions:     sessions,
		Accounts:     accounts,
		Categories:   services.NewCategoryService(s),
		Transactions: transactions,
		Budgets:      services.NewBudgetService(s),
		Imports:      services.NewImportService(s, accounts, sessions, archiver, cfg.MaxUploadBytes),
		Review:       services.NewReviewService(s, sessions, opts.Suggester, transactions, cfg.ReviewBatchSize, cfg.ReviewBatchDelay),
		Export:       services.NewExportService(s),
		Audit:        services.NewAuditService(s),
		Archiver:     archiver,
	}
}

// NewOptions connects the optional external services named in cfg. A
// missing Gemini key leaves review disabled rather than failing startup.
func NewOptions(ctx context.Context, cfg *config.Config) (Options, error) {
	var opts Options

	gemini, err := advisor.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	switch {
	case err == nil:
		opts.Suggester = gemini
	case errors.Is(err, advisor.ErrNotConfigured):
		logger.Get().Warnw("AI review disabled", "reason", err.Error())
	default:
		return opts, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	archiver, err := archive.New(ctx, cfg.ArchiveBucket)
	if err != nil {
		return opts, fmt.Errorf("failed to create statement archive: %w", err)
	}
	opts.Archiver = archiver

	return opts, nil
}

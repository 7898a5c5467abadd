package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pennywise/internal/archive"
	"pennywise/internal/models"
	"pennywise/internal/services"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "import <file | gs://bucket/object>",
		Short: "Import a bank statement CSV into the ledger",
		Long: "Import a bank statement CSV into the ledger. A gs:// source replays a\n" +
			"statement from the archive bucket; rows already imported are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.user()
			if err != nil {
				return err
			}

			app, closeDB, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			req, err := statementRequest(cmd.Context(), app.Archiver, args[0])
			if err != nil {
				return err
			}
			if accountID != "" {
				req.AccountID = &accountID
			}
			result, err := app.Imports.ImportStatement(cmd.Context(), userID, req)
			if err != nil {
				return err
			}
			app.Audit.Log(cmd.Context(), userID, services.AuditImportStatement, "account", accountID, "",
				map[string]any{"filename": req.Filename, "imported": result.Imported, "source": "cli", "archive_uri": result.ArchiveURI})
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account to link the rows to")

	return cmd
}

// statementRequest reads a statement from disk, or from the archive when
// source is a gs:// URI.
func statementRequest(ctx context.Context, archiver archive.Archiver, source string) (services.ImportRequest, error) {
	if strings.HasPrefix(source, "gs://") {
		_, object, err := archive.ParseURI(source)
		if err != nil {
			return services.ImportRequest{}, err
		}
		data, err := archiver.Fetch(ctx, source)
		if err != nil {
			return services.ImportRequest{}, fmt.Errorf("fetching archived statement: %w", err)
		}
		return services.ImportRequest{Filename: path.Base(object), Data: data, ArchiveURI: source}, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return services.ImportRequest{}, fmt.Errorf("reading statement: %w", err)
	}
	return services.ImportRequest{Filename: filepath.Base(source), Data: data}, nil
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var accountID, from, to, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := opts.user()
			if err != nil {
				return err
			}
			filter, err := exportFilter(accountID, from, to)
			if err != nil {
				return err
			}

			app, closeDB, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			n, err := app.Export.ExportCSV(cmd.Context(), userID, filter, w)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transaction(s) to %s\n", n, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "only this account")
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}

func exportFilter(accountID, from, to string) (services.TransactionFilter, error) {
	var f services.TransactionFilter
	if accountID != "" {
		f.AccountID = &accountID
	}
	if from != "" {
		d, err := models.ParseDate(from)
		if err != nil {
			return f, fmt.Errorf("invalid --from: %w", err)
		}
		f.From = &d
	}
	if to != "" {
		d, err := models.ParseDate(to)
		if err != nil {
			return f, fmt.Errorf("invalid --to: %w", err)
		}
		f.To = &d
	}
	return f, nil
}

func newReconcileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <account-id>",
		Short: "Compare an account's stored balance with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.user()
			if err != nil {
				return err
			}
			app, closeDB, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			report, err := app.Accounts.Reconcile(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newReviewCommand(opts *rootOptions) *cobra.Command {
	var accountID, instructions string
	var limit int
	var apply bool

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Ask the AI reviewer for category and description suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := opts.user()
			if err != nil {
				return err
			}
			filter, err := exportFilter(accountID, "", "")
			if err != nil {
				return err
			}

			app, closeDB, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			result, err := app.Review.Review(cmd.Context(), userID, services.ReviewRequest{
				Filter:       filter,
				Instructions: instructions,
				Limit:        limit,
			})
			if err != nil {
				return err
			}
			if !apply || len(result.Suggestions) == 0 {
				return printJSON(cmd.OutOrStdout(), result)
			}

			applied, err := app.Review.ApplySuggestions(cmd.Context(), userID, result.Suggestions)
			if err != nil {
				return err
			}
			app.Audit.Log(cmd.Context(), userID, services.AuditApplySuggestions, "transaction", "", "",
				map[string]any{"applied": applied.Applied, "skipped": applied.Skipped, "source": "cli"})
			return printJSON(cmd.OutOrStdout(), applied)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "only review this account")
	cmd.Flags().StringVar(&instructions, "instructions", "", "extra guidance for the reviewer")
	cmd.Flags().IntVar(&limit, "limit", 0, "review at most this many transactions")
	cmd.Flags().BoolVar(&apply, "apply", false, "apply the suggestions instead of printing them")

	return cmd
}

// Package commands implements the pennywise command line. Ledger commands
// open the configured database directly; sync talks to a running API.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pennywise/internal/config"
	"pennywise/internal/database"
	"pennywise/internal/server"
)

// Version is stamped at build time.
var Version = "dev"

type rootOptions struct {
	userID string
}

func (o *rootOptions) user() (string, error) {
	u := strings.TrimSpace(o.userID)
	if u == "" {
		return "", fmt.Errorf("a user is required (--user or PENNYWISE_USER)")
	}
	return u, nil
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "pennywise",
		Short:   "Personal ledger with statement import and AI review",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.userID, "user", os.Getenv("PENNYWISE_USER"), "user the command acts for")

	rootCmd.AddCommand(
		newAccountCommand(opts),
		newImportCommand(opts),
		newExportCommand(opts),
		newReconcileCommand(opts),
		newReviewCommand(opts),
		newTokenCommand(opts),
		newSyncCommand(opts),
	)

	return rootCmd
}

// openApp connects to the configured database and builds the service graph.
// The returned func closes the connection.
func openApp(ctx context.Context) (*server.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	dbConfig, err := database.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading database config: %w", err)
	}
	manager, err := database.NewManager(dbConfig)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = manager.Close() }

	if err := manager.Migrate(); err != nil {
		closeDB()
		return nil, nil, err
	}

	opts, err := server.NewOptions(ctx, cfg)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return server.NewApp(manager.DB(), cfg, opts), closeDB, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

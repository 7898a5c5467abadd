package commands

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"pennywise/internal/config"
	"pennywise/internal/middleware"
	"pennywise/internal/syncclient"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var email string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development access token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := opts.user()
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			token, err := middleware.GenerateAccessToken(middleware.AuthConfig{
				Secret: cfg.AuthJWTSecret,
				Issuer: cfg.AuthJWTIssuer,
			}, userID, email, ttl)
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	return cmd
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	var apiURL, apiKey, accountID string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sync <file>...",
		Short: "Upload statements to a running API with the sync key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := opts.user()
			if err != nil {
				return err
			}
			if apiKey == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				apiKey = cfg.SyncAPIKey
			}
			if apiKey == "" {
				return fmt.Errorf("a sync key is required (--api-key or SYNC_API_KEY)")
			}

			client := syncclient.New(apiURL, apiKey, &http.Client{Timeout: timeout})
			var failed int
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				summary, err := client.UploadStatement(cmd.Context(), userID, accountID, filepath.Base(path), data)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d, duplicates %d, skipped %d, balance update %s\n",
					path, summary.Imported, summary.Duplicates, summary.Skipped, summary.Strategy)
				for _, w := range summary.Warnings {
					fmt.Fprintf(cmd.OutOrStdout(), "  warning: %s\n", w)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d upload(s) failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", envOr("PENNYWISE_API_URL", "http://localhost:8080"), "API base URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "sync key (defaults to SYNC_API_KEY)")
	cmd.Flags().StringVar(&accountID, "account", "", "account to link the rows to")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-upload timeout")

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

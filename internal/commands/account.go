package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pennywise/internal/models"
	"pennywise/internal/services"
)

func newAccountCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage ledger accounts",
	}
	cmd.AddCommand(newAccountCreateCommand(opts), newAccountListCommand(opts))
	return cmd
}

func newAccountCreateCommand(opts *rootOptions) *cobra.Command {
	var name, accountType, opening string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := opts.user()
			if err != nil {
				return err
			}
			balance, err := decimal.NewFromString(opening)
			if err != nil {
				return fmt.Errorf("invalid opening balance %q: %w", opening, err)
			}

			app, closeDB, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			account, err := app.Accounts.CreateAccount(cmd.Context(), userID, services.AccountInput{
				Name:           name,
				Type:           models.AccountType(accountType),
				OpeningBalance: balance,
			})
			if err != nil {
				return err
			}
			app.Audit.Log(cmd.Context(), userID, services.AuditCreateAccount, "account", account.ID, "", map[string]any{"source": "cli"})
			return printJSON(cmd.OutOrStdout(), account)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&accountType, "type", string(models.AccountTypeChecking), "account type")
	cmd.Flags().StringVar(&opening, "opening-balance", "0", "opening balance")

	return cmd
}

func newAccountListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their stored balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := opts.user()
			if err != nil {
				return err
			}
			app, closeDB, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			accounts, err := app.Accounts.GetUserAccounts(cmd.Context(), userID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tBALANCE")
			for _, a := range accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, a.Balance.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

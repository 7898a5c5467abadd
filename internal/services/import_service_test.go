package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pennywise/internal/archive"
	"pennywise/internal/csvimport"
	"pennywise/internal/models"
	"pennywise/internal/reconcile"
	"pennywise/internal/store"
	"pennywise/internal/testutil"
)

const bankStatement = `Account,Post Date,Check,Description,Debit,Credit,Status,Balance
1,2024-01-03,,PAYROLL ACME CORP,0,2500.00,Posted,3800.00
1,2024-01-05,,Coffee Shop,4.50,0,,1234.56
1,2024-01-04,,"GROCER, FRESH MARKET",82.15,0,Posted,3717.85
1,not-a-date,,Broken Row,10.00,0,Posted,9999.99
`

const standardStatement = `date,description,amount,category,type
2024-02-01,Salary,100.00,Salary,income
2024-02-02,Groceries,80.00,Food,
2024-02-03,Bus,50.00,,expense
2024-02-04,Refund,abc,Shopping,income
`

// recordingArchiver remembers what it was asked to store.
type recordingArchiver struct {
	calls int
	err   error
}

func (a *recordingArchiver) Archive(_ context.Context, userID, filename string, _ []byte) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return "gs://test/" + archive.ObjectName(userID, filename, testutil.Date(2024, 1, 1).Time), nil
}

func (a *recordingArchiver) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func newImportService(env *testEnv, archiver archive.Archiver, maxBytes int64) ImportServicer {
	return NewImportService(env.store, env.accounts, env.sessions, archiver, maxBytes)
}

func TestImportStatement(t *testing.T) {
	ctx := context.Background()

	t.Run("bank_export_sets_absolute_balance", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.account(t, "10")
		archiver := &recordingArchiver{}
		svc := newImportService(env, archiver, 0)

		result, err := svc.ImportStatement(ctx, env.userID, ImportRequest{
			AccountID: &account.ID,
			Filename:  "chase.csv",
			Data:      []byte(bankStatement),
		})
		testutil.AssertNoError(t, err)

		if result.Format != csvimport.FormatBankExport {
			t.Errorf("expected bank export format, got %s", result.Format)
		}
		if result.Imported != 3 || result.Skipped != 1 {
			t.Errorf("expected 3 imported and 1 skipped, got %d and %d", result.Imported, result.Skipped)
		}
		if result.Strategy != reconcile.StrategyAbsolute {
			t.Errorf("expected absolute strategy, got %s", result.Strategy)
		}
		// Latest-dated row wins, not the last row in the file.
		testutil.AssertDecimal(t, "1234.56", env.balance(t, account.ID))
		testutil.AssertDecimal(t, "2413.35", result.NetAmount)
		if result.LatestDate == nil || result.LatestDate.String() != "2024-01-05" {
			t.Errorf("unexpected latest date %v", result.LatestDate)
		}
		if archiver.calls != 1 || !strings.HasPrefix(result.ArchiveURI, "gs://test/") {
			t.Errorf("expected the upload to be archived, got %q", result.ArchiveURI)
		}

		rows, err := env.store.ListTransactions(ctx, env.userID, store.TransactionFilter{AccountID: &account.ID})
		testutil.AssertNoError(t, err)
		if len(rows) != 3 {
			t.Fatalf("expected 3 linked rows, got %d", len(rows))
		}
		for _, r := range rows {
			if r.Category != models.DefaultCategory {
				t.Errorf("expected default category, got %q", r.Category)
			}
		}
	})

	t.Run("standard_is_incremental_on_fresh_balance", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.account(t, "100")
		svc := newImportService(env, nil, 0)

		calls := 0
		env.store.beforeGetAccount = func(id string) {
			calls++
			if calls == 2 {
				// A concurrent edit lands between parse and apply.
				env.db.Model(&models.Account{}).Where("id = ?", id).Update("balance", dec("500"))
			}
		}

		result, err := svc.ImportStatement(ctx, env.userID, ImportRequest{AccountID: &account.ID, Data: []byte(standardStatement)})
		testutil.AssertNoError(t, err)

		if result.Strategy != reconcile.StrategyIncremental {
			t.Fatalf("expected incremental strategy, got %s", result.Strategy)
		}
		testutil.AssertDecimal(t, "-30", result.NetAmount)
		testutil.AssertDecimal(t, "470", env.balance(t, account.ID))
		if result.Skipped != 1 || len(result.RowErrors) != 1 {
			t.Errorf("expected the non-numeric row to be skipped, got %+v", result.RowErrors)
		}
	})

	t.Run("duplicates_excluded_from_net", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.account(t, "0")
		testutil.CreateTestTransactionOn(t, env.db, env.userID, "", models.TransactionTypeExpense, "80",
			testutil.Date(2024, 2, 2), "  GROCERIES ")
		svc := newImportService(env, nil, 0)

		result, err := svc.ImportStatement(ctx, env.userID, ImportRequest{AccountID: &account.ID, Data: []byte(standardStatement)})
		testutil.AssertNoError(t, err)

		if result.Duplicates != 1 || result.Imported != 2 {
			t.Errorf("expected 1 duplicate and 2 imported, got %d and %d", result.Duplicates, result.Imported)
		}
		testutil.AssertDecimal(t, "50", result.NetAmount)
		testutil.AssertDecimal(t, "50", env.balance(t, account.ID))
	})

	t.Run("reimport_is_idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.account(t, "0")
		svc := newImportService(env, nil, 0)
		req := ImportRequest{AccountID: &account.ID, Data: []byte(standardStatement)}

		_, err := svc.ImportStatement(ctx, env.userID, req)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "-30", env.balance(t, account.ID))

		again, err := svc.ImportStatement(ctx, env.userID, req)
		testutil.AssertNoError(t, err)
		if again.Imported != 0 || again.Duplicates != 3 {
			t.Errorf("expected everything to be a duplicate, got %+v", again)
		}
		if again.Strategy != reconcile.StrategyNone {
			t.Errorf("expected no balance change, got %s", again.Strategy)
		}
		testutil.AssertDecimal(t, "-30", env.balance(t, account.ID))
	})

	t.Run("sub_cent_amounts_match_manual_entry", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.account(t, "10")
		svc := newImportService(env, nil, 0)

		manual, err := env.transactions.CreateTransaction(ctx, env.userID, TransactionInput{
			AccountID:   &account.ID,
			Date:        testutil.Date(2024, 2, 1),
			Amount:      dec("1.005"),
			Type:        models.TransactionTypeExpense,
			Description: "Parking",
		})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "1.01", manual.Amount)

		statement := "date,description,amount\n" +
			"2024-02-01,Parking,-1.005\n" +
			"2024-02-02,Toll,-1.005\n" +
			"2024-02-03,Meter,-1.005\n"
		result, err := svc.ImportStatement(ctx, env.userID, ImportRequest{AccountID: &account.ID, Data: []byte(statement)})
		testutil.AssertNoError(t, err)

		if result.Duplicates != 1 || result.Imported != 2 {
			t.Errorf("expected the manual row to dedupe, got %d duplicates and %d imported", result.Duplicates, result.Imported)
		}
		testutil.AssertDecimal(t, "-2.02", result.NetAmount)
		testutil.AssertDecimal(t, "6.97", env.balance(t, account.ID))

		rows, err := env.store.ListTransactions(ctx, env.userID, store.TransactionFilter{AccountID: &account.ID})
		testutil.AssertNoError(t, err)
		for _, r := range rows {
			testutil.AssertDecimal(t, "1.01", r.Amount)
		}

		report, err := env.accounts.Reconcile(ctx, env.userID, account.ID)
		testutil.AssertNoError(t, err)
		if !report.InSync {
			t.Errorf("expected balance to match rows, drift %s", report.Drift)
		}
	})

	t.Run("replay_is_not_archived_again", func(t *testing.T) {
		env := newTestEnv(t)
		archiver := &recordingArchiver{}
		svc := newImportService(env, archiver, 0)
		uri := "gs://test/statements/u/2024/01/01/x-feb.csv"

		result, err := svc.ImportStatement(ctx, env.userID, ImportRequest{
			Filename:   "x-feb.csv",
			Data:       []byte(standardStatement),
			ArchiveURI: uri,
		})
		testutil.AssertNoError(t, err)

		if archiver.calls != 0 {
			t.Errorf("expected no archive upload, got %d", archiver.calls)
		}
		if result.ArchiveURI != uri {
			t.Errorf("expected the source URI to be kept, got %q", result.ArchiveURI)
		}
	})

	t.Run("balance_failure_keeps_rows", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.account(t, "100")
		env.store.failBalance[account.ID] = true
		svc := newImportService(env, nil, 0)

		result, err := svc.ImportStatement(ctx, env.userID, ImportRequest{AccountID: &account.ID, Data: []byte(standardStatement)})
		testutil.AssertNoError(t, err)

		if result.Imported != 3 {
			t.Errorf("expected rows to stay inserted, got %d", result.Imported)
		}
		if len(result.Warnings) == 0 {
			t.Error("expected a warning")
		}
		if result.Balance != nil {
			t.Error("expected no balance on failure")
		}
		testutil.AssertDecimal(t, "100", env.balance(t, account.ID))

		flags := env.flags(t, account.ID)
		if len(flags) != 1 || flags[0].Source != "import" {
			t.Fatalf("expected one import flag, got %+v", flags)
		}
		testutil.AssertDecimal(t, "-30", flags[0].Delta)
	})

	t.Run("insert_failure_leaves_balance", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.account(t, "100")
		env.store.failInsertMany = true
		svc := newImportService(env, nil, 0)

		_, err := svc.ImportStatement(ctx, env.userID, ImportRequest{AccountID: &account.ID, Data: []byte(standardStatement)})
		testutil.AssertAppError(t, err, "STORE_ERROR")
		testutil.AssertDecimal(t, "100", env.balance(t, account.ID))
	})

	t.Run("unlinked_import", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newImportService(env, nil, 0)

		result, err := svc.ImportStatement(ctx, env.userID, ImportRequest{Data: []byte(bankStatement)})
		testutil.AssertNoError(t, err)
		if result.Strategy != reconcile.StrategyNone || result.Imported != 3 {
			t.Errorf("unexpected result %+v", result)
		}
		if result.RunningBalance == nil {
			t.Error("expected the observed running balance to be reported")
		}
	})

	t.Run("archive_failure_is_a_warning", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newImportService(env, &recordingArchiver{err: errors.New("bucket gone")}, 0)

		result, err := svc.ImportStatement(ctx, env.userID, ImportRequest{Data: []byte(standardStatement)})
		testutil.AssertNoError(t, err)
		if len(result.Warnings) != 1 || result.ArchiveURI != "" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("rejected_uploads", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newImportService(env, nil, 64)

		_, err := svc.ImportStatement(ctx, env.userID, ImportRequest{Data: []byte(" \n\n")})
		testutil.AssertAppError(t, err, "EMPTY_FILE")

		_, err = svc.ImportStatement(ctx, env.userID, ImportRequest{Data: []byte(bankStatement)})
		testutil.AssertAppError(t, err, "FILE_TOO_LARGE")

		_, err = svc.ImportStatement(ctx, env.userID, ImportRequest{AccountID: ptr("missing"), Data: []byte("a,b,c\n")})
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("header_only", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.account(t, "5")
		svc := newImportService(env, nil, 0)

		result, err := svc.ImportStatement(ctx, env.userID, ImportRequest{AccountID: &account.ID, Data: []byte("date,description,amount\n")})
		testutil.AssertNoError(t, err)
		if result.Imported != 0 || result.Strategy != reconcile.StrategyNone {
			t.Errorf("unexpected result %+v", result)
		}
		testutil.AssertDecimal(t, "5", env.balance(t, account.ID))
	})
}

package services

import (
	"context"
	"testing"
	"time"

	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/store"
	"pennywise/internal/testutil"
)

func TestCreateBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(store.New(db))
		userID := testutil.NewUserID()

		budget, err := svc.CreateBudget(ctx, userID, BudgetInput{
			Category: "Groceries",
			Amount:   dec("500"),
			Period:   models.BudgetPeriodMonthly,
		})
		testutil.AssertNoError(t, err)

		if budget.ID == "" {
			t.Fatal("expected generated ID")
		}
		if budget.Name != "Groceries" {
			t.Errorf("expected name to default to category, got %q", budget.Name)
		}
		if !budget.IsActive {
			t.Error("expected budget to be active")
		}
		if budget.StartDate.IsZero() {
			t.Error("expected start date to default to today")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(store.New(db))
		userID := testutil.NewUserID()

		cases := []BudgetInput{
			{Amount: dec("10")},
			{Category: "Food", Amount: dec("0")},
			{Category: "Food", Amount: dec("10"), Period: "weekly"},
			{Category: "Food", Amount: dec("10"), StartDate: testutil.Date(2024, 5, 1), EndDate: ptr(testutil.Date(2024, 4, 1))},
		}
		for _, in := range cases {
			_, err := svc.CreateBudget(ctx, userID, in)
			testutil.AssertAppError(t, err, "INVALID_INPUT")
		}
	})
}

func TestGetUserBudgets(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(store.New(db))
	userID := testutil.NewUserID()

	for i := 0; i < 3; i++ {
		testutil.CreateTestBudget(t, db, userID, "Food")
	}
	inactive := testutil.CreateTestBudget(t, db, userID, "Fun")
	db.Model(inactive).Update("is_active", false)

	result, err := svc.GetUserBudgets(ctx, userID, pagination.PageRequest{Page: 1, PageSize: 2}, store.BudgetFilter{})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 4 || len(result.Data) != 2 {
		t.Errorf("expected 4 total and 2 on page, got %d and %d", result.TotalItems, len(result.Data))
	}

	active := true
	result, err = svc.GetUserBudgets(ctx, userID, pagination.PageRequest{}, store.BudgetFilter{IsActive: &active})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 3 {
		t.Errorf("expected 3 active budgets, got %d", result.TotalItems)
	}
}

func TestUpdateBudget(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(store.New(db))
	userID := testutil.NewUserID()
	budget := testutil.CreateTestBudget(t, db, userID, "Food")

	yearly := models.BudgetPeriodYearly
	updated, err := svc.UpdateBudget(ctx, userID, budget.ID, BudgetUpdate{
		Name:     ptr("Annual food"),
		Amount:   ptr(dec("1200")),
		Period:   &yearly,
		IsActive: ptr(false),
	})
	testutil.AssertNoError(t, err)

	reloaded, err := svc.GetBudgetByID(ctx, userID, budget.ID)
	testutil.AssertNoError(t, err)
	if reloaded.Name != "Annual food" || reloaded.Period != yearly || reloaded.IsActive {
		t.Errorf("unexpected budget %+v", reloaded)
	}
	testutil.AssertDecimal(t, "1200", updated.Amount)

	_, err = svc.UpdateBudget(ctx, userID, budget.ID, BudgetUpdate{Amount: ptr(dec("-1"))})
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = svc.UpdateBudget(ctx, testutil.NewUserID(), budget.ID, BudgetUpdate{})
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
}

func TestDeleteBudget(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(store.New(db))
	userID := testutil.NewUserID()
	budget := testutil.CreateTestBudget(t, db, userID, "Food")

	testutil.AssertNoError(t, svc.DeleteBudget(ctx, userID, budget.ID))

	_, err := svc.GetBudgetByID(ctx, userID, budget.ID)
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")

	err = svc.DeleteBudget(ctx, userID, budget.ID)
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
}

func TestGetBudgetProgress(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	s := store.New(db)
	svc := &budgetService{store: s, now: func() time.Time {
		return time.Date(2024, time.March, 20, 15, 0, 0, 0, time.UTC)
	}}
	userID := testutil.NewUserID()
	budget := testutil.CreateTestBudget(t, db, userID, "Food")

	inMarch := []string{"20", "5.50"}
	for _, amount := range inMarch {
		tx := testutil.CreateTestTransactionOn(t, db, userID, "", models.TransactionTypeExpense, amount, testutil.Date(2024, 3, 10), "lunch")
		db.Model(tx).Update("category", "FOOD")
	}
	// Outside the window, wrong type, or wrong category.
	other := []*models.Transaction{
		testutil.CreateTestTransactionOn(t, db, userID, "", models.TransactionTypeExpense, "99", testutil.Date(2024, 2, 29), "lunch"),
		testutil.CreateTestTransactionOn(t, db, userID, "", models.TransactionTypeIncome, "99", testutil.Date(2024, 3, 11), "refund"),
	}
	for _, tx := range other {
		db.Model(tx).Update("category", "Food")
	}
	testutil.CreateTestTransactionOn(t, db, userID, "", models.TransactionTypeExpense, "99", testutil.Date(2024, 3, 12), "cinema")

	progress, err := svc.GetBudgetProgress(ctx, userID, budget.ID)
	testutil.AssertNoError(t, err)

	if progress.PeriodStart.String() != "2024-03-01" || progress.PeriodEnd.String() != "2024-03-31" {
		t.Errorf("unexpected window %s..%s", progress.PeriodStart, progress.PeriodEnd)
	}
	testutil.AssertDecimal(t, "25.50", progress.Spent)
	testutil.AssertDecimal(t, "74.50", progress.Remaining)
	if progress.Percentage != 25.5 {
		t.Errorf("expected 25.5%%, got %v", progress.Percentage)
	}
}

func TestPeriodWindow(t *testing.T) {
	now := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)

	start, end := periodWindow(models.BudgetPeriodMonthly, now)
	if start.String() != "2024-02-01" || end.String() != "2024-02-29" {
		t.Errorf("monthly window %s..%s", start, end)
	}
	start, end = periodWindow(models.BudgetPeriodYearly, now)
	if start.String() != "2024-01-01" || end.String() != "2024-12-31" {
		t.Errorf("yearly window %s..%s", start, end)
	}
}

package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
	"pennywise/internal/store"
)

type mockBudgetService struct {
	createFn   func(in services.BudgetInput) (*models.Budget, error)
	listFn     func(page pagination.PageRequest, f store.BudgetFilter) (*pagination.PageResponse[models.Budget], error)
	updateFn   func(id string, in services.BudgetUpdate) (*models.Budget, error)
	progressFn func(id string) (*services.BudgetProgress, error)
}

func (m *mockBudgetService) CreateBudget(_ context.Context, _ string, in services.BudgetInput) (*models.Budget, error) {
	if m.createFn != nil {
		return m.createFn(in)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetUserBudgets(_ context.Context, _ string, page pagination.PageRequest, f store.BudgetFilter) (*pagination.PageResponse[models.Budget], error) {
	if m.listFn != nil {
		return m.listFn(page, f)
	}
	resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBudgetService) GetBudgetByID(context.Context, string, string) (*models.Budget, error) {
	return nil, apperrors.ErrBudgetNotFound
}

func (m *mockBudgetService) UpdateBudget(_ context.Context, _, id string, in services.BudgetUpdate) (*models.Budget, error) {
	if m.updateFn != nil {
		return m.updateFn(id, in)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) DeleteBudget(context.Context, string, string) error { return nil }

func (m *mockBudgetService) GetBudgetProgress(_ context.Context, _, id string) (*services.BudgetProgress, error) {
	if m.progressFn != nil {
		return m.progressFn(id)
	}
	return &services.BudgetProgress{}, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.GetBudgets)
	auth.GET("/budgets/:id", handler.GetBudget)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	auth.GET("/budgets/:id/progress", handler.GetBudgetProgress)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.BudgetInput
		svc := &mockBudgetService{
			createFn: func(in services.BudgetInput) (*models.Budget, error) {
				got = in
				return &models.Budget{Category: in.Category, Amount: in.Amount, Period: models.BudgetPeriodMonthly}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(svc, audit))

		rec := doRequest(r, http.MethodPost, "/budgets", `{"category":"Dining","amount":"300","start_date":"2024-05-01"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.StartDate.String() != "2024-05-01" || !got.Amount.Equal(decimal.NewFromInt(300)) {
			t.Errorf("unexpected input %+v", got)
		}
		if !audit.logged(services.AuditCreateBudget) {
			t.Error("expected audit log entry")
		}
	})

	for name, body := range map[string]string{
		"missing category": `{"amount":10}`,
		"zero amount":      `{"category":"Dining","amount":0}`,
		"weekly period":    `{"category":"Dining","amount":10,"period":"weekly"}`,
	} {
		t.Run("returns 400 on "+name, func(t *testing.T) {
			r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))
			rec := doRequest(r, http.MethodPost, "/budgets", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestBudgetHandler_GetBudgets(t *testing.T) {
	var got store.BudgetFilter
	svc := &mockBudgetService{
		listFn: func(_ pagination.PageRequest, f store.BudgetFilter) (*pagination.PageResponse[models.Budget], error) {
			got = f
			resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
			return &resp, nil
		},
	}
	r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

	rec := doRequest(r, http.MethodGet, "/budgets?is_active=true&period=yearly", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.IsActive == nil || !*got.IsActive || got.Period == nil || *got.Period != models.BudgetPeriodYearly {
		t.Errorf("unexpected filter %+v", got)
	}

	rec = doRequest(r, http.MethodGet, "/budgets?period=daily", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBudgetHandler_UpdateBudget(t *testing.T) {
	svc := &mockBudgetService{
		updateFn: func(_ string, in services.BudgetUpdate) (*models.Budget, error) {
			if in.Amount == nil || in.Amount.String() != "450" || in.IsActive == nil || *in.IsActive {
				t.Errorf("unexpected update %+v", in)
			}
			return &models.Budget{}, nil
		},
	}
	r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

	rec := doRequest(r, http.MethodPut, "/budgets/"+testTxID, `{"amount":"450","is_active":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(r, http.MethodPut, "/budgets/"+testTxID, `{"amount":"-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBudgetHandler_GetBudgetProgress(t *testing.T) {
	svc := &mockBudgetService{
		progressFn: func(id string) (*services.BudgetProgress, error) {
			return &services.BudgetProgress{BudgetID: id, Spent: decimal.NewFromInt(75), Percentage: 25}, nil
		},
	}
	r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

	rec := doRequest(r, http.MethodGet, "/budgets/"+testTxID+"/progress", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	progress := parseJSON(t, rec)["progress"].(map[string]any)
	if progress["percentage"].(float64) != 25 {
		t.Errorf("unexpected progress %v", progress)
	}

	rec = doRequest(r, http.MethodGet, "/budgets/"+testTxID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

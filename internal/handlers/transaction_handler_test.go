package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn   func(userID string, in services.TransactionInput) (*models.Transaction, error)
	getUserTransactionsFn func(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn  func(userID, transactionID string) (*models.Transaction, error)
	updateTransactionFn   func(userID, transactionID string, in services.TransactionInput) (*models.Transaction, error)
	deleteTransactionFn   func(userID, transactionID string) error
}

func (m *mockTransactionService) CreateTransaction(_ context.Context, userID string, in services.TransactionInput) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, in)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetUserTransactions(_ context.Context, userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetTransactionByID(_ context.Context, userID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(_ context.Context, userID, transactionID string, in services.TransactionInput) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(userID, transactionID, in)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(_ context.Context, userID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.GET("/transactions", handler.GetUserTransactions)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.PUT("/transactions/:id", handler.UpdateTransaction)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	return r
}

func echoTransaction(userID string, in services.TransactionInput) *models.Transaction {
	return &models.Transaction{
		Base:      models.Base{ID: testTxID},
		UserID:    userID,
		AccountID: in.AccountID,
		Type:      in.Type,
		Amount:    in.Amount,
		Category:  models.NormalizeCategory(in.Category),
	}
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.TransactionInput
		txSvc := &mockTransactionService{
			createTransactionFn: func(userID string, in services.TransactionInput) (*models.Transaction, error) {
				got = in
				return echoTransaction(userID, in), nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := doRequest(r, http.MethodPost, "/transactions",
			`{"account_id":"`+testAccountID+`","type":"income","amount":"50.25","description":"Salary","date":"2024-02-01"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		tx := result["transaction"].(map[string]any)
		if tx["amount"] != "50.25" {
			t.Errorf("expected amount 50.25, got %v", tx["amount"])
		}
		if got.Date.String() != "2024-02-01" || got.Description != "Salary" {
			t.Errorf("unexpected service input %+v", got)
		}
		if !audit.logged(services.AuditCreateTransaction) {
			t.Error("expected audit log entry")
		}
	})

	t.Run("accepts unlinked transactions", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(userID string, in services.TransactionInput) (*models.Transaction, error) {
				if in.AccountID != nil {
					t.Errorf("expected no account, got %v", *in.AccountID)
				}
				return echoTransaction(userID, in), nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/transactions", `{"type":"expense","amount":12}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 201 with a warning when the balance step fails", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(userID string, in services.TransactionInput) (*models.Transaction, error) {
				return echoTransaction(userID, in), apperrors.Wrap(apperrors.ErrBalanceUpdate, context.DeadlineExceeded)
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodPost, "/transactions",
			`{"account_id":"`+testAccountID+`","type":"expense","amount":"9.99"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		warnings, _ := parseJSON(t, rec)["warnings"].([]any)
		if len(warnings) != 1 {
			t.Errorf("expected one warning, got %v", warnings)
		}
	})

	for name, body := range map[string]string{
		"zero amount":     `{"type":"income","amount":0}`,
		"negative amount": `{"type":"income","amount":"-4"}`,
		"bad type":        `{"type":"investment","amount":5}`,
		"bad account":     `{"account_id":"7","type":"income","amount":5}`,
		"bad date":        `{"type":"income","amount":5,"date":"01/02/2024"}`,
	} {
		t.Run("returns 400 on "+name, func(t *testing.T) {
			r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))
			rec := doRequest(r, http.MethodPost, "/transactions", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns 404 for a foreign account", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(string, services.TransactionInput) (*models.Transaction, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))
		rec := doRequest(r, http.MethodPost, "/transactions",
			`{"account_id":"`+testAccountID+`","type":"income","amount":5}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetUserTransactions(t *testing.T) {
	t.Run("passes filter and page", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getUserTransactionsFn: func(_ string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				if page.Page != 2 || page.PageSize != 5 {
					t.Errorf("unexpected page %+v", page)
				}
				if filter.AccountID == nil || *filter.AccountID != testAccountID || filter.Category == nil || *filter.Category != "Dining" {
					t.Errorf("unexpected filter %+v", filter)
				}
				resp := pagination.NewPageResponse([]models.Transaction{{Base: models.Base{ID: testTxID}}}, 2, 5, 6)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, http.MethodGet, "/transactions?page=2&page_size=5&account_id="+testAccountID+"&category=Dining", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["total_pages"].(float64) != 2 {
			t.Errorf("expected 2 pages, got %v", result["total_pages"])
		}
	})

	t.Run("returns 400 on oversized page", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))
		rec := doRequest(r, http.MethodGet, "/transactions?page_size=1000", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("passes a known sort key", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getUserTransactionsFn: func(_ string, page pagination.PageRequest, _ services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				if page.Sort != "-amount" {
					t.Errorf("sort = %q", page.Sort)
				}
				resp := pagination.NewPageResponse[models.Transaction](nil, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))
		rec := doRequest(r, http.MethodGet, "/transactions?sort=-amount", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 on unknown sort key", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))
		rec := doRequest(r, http.MethodGet, "/transactions?sort=user_id", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	t.Run("returns 404 when missing", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(string, string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))
		rec := doRequest(r, http.MethodGet, "/transactions/"+testTxID, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on malformed id", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))
		rec := doRequest(r, http.MethodGet, "/transactions/abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("replaces the transaction", func(t *testing.T) {
		txSvc := &mockTransactionService{
			updateTransactionFn: func(userID, id string, in services.TransactionInput) (*models.Transaction, error) {
				if id != testTxID || in.Type != models.TransactionTypeExpense || in.Category != "Rent" {
					t.Errorf("unexpected update %s %+v", id, in)
				}
				return echoTransaction(userID, in), nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := doRequest(r, http.MethodPut, "/transactions/"+testTxID,
			`{"type":"expense","amount":"1200","category":"Rent"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !audit.logged(services.AuditUpdateTransaction) {
			t.Error("expected audit log entry")
		}
	})

	t.Run("surfaces balance failures", func(t *testing.T) {
		txSvc := &mockTransactionService{
			updateTransactionFn: func(string, string, services.TransactionInput) (*models.Transaction, error) {
				return nil, apperrors.Wrap(apperrors.ErrBalanceUpdate, context.DeadlineExceeded)
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))
		rec := doRequest(r, http.MethodPut, "/transactions/"+testTxID, `{"type":"expense","amount":3}`)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BALANCE_UPDATE_FAILED")
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		deleted := ""
		txSvc := &mockTransactionService{
			deleteTransactionFn: func(_, id string) error {
				deleted = id
				return nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := doRequest(r, http.MethodDelete, "/transactions/"+testTxID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if deleted != testTxID || !audit.logged(services.AuditDeleteTransaction) {
			t.Errorf("expected delete of %s to be audited", testTxID)
		}
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		txSvc := &mockTransactionService{
			deleteTransactionFn: func(string, string) error { return apperrors.ErrTransactionNotFound },
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))
		rec := doRequest(r, http.MethodDelete, "/transactions/"+testTxID, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

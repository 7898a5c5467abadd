package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	logger.Set(zap.New(core).Sugar())
	t.Cleanup(func() { logger.Set(zap.NewNop().Sugar()) })
	return logs
}

func TestRequestLogging(t *testing.T) {
	logs := observeLogs(t)
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	t.Run("reuses a valid incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", http.NoBody)
		req.Header.Set("X-Request-ID", "0190a1b2-0000-7000-8000-000000000001")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "0190a1b2-0000-7000-8000-000000000001" {
			t.Errorf("X-Request-ID = %q", got)
		}
	})

	t.Run("replaces a malformed request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", http.NoBody)
		req.Header.Set("X-Request-ID", "<script>")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got == "<script>" || got == "" {
			t.Errorf("X-Request-ID = %q", got)
		}
	})

	t.Run("server errors log at warn", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))

		entries := logs.FilterMessage("request failed").All()
		if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
			t.Fatalf("expected one warn entry, got %v", entries)
		}
	})
}

func TestErrorHandler(t *testing.T) {
	observeLogs(t)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) { _ = c.Error(apperrors.ErrNotFound) })
	r.GET("/raw", func(c *gin.Context) { _ = c.Error(errors.New("dial tcp: refused")) })
	r.GET("/bind", func(c *gin.Context) { _ = c.Error(errors.New("page_size too large")).SetType(gin.ErrorTypeBind) })
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "DUPLICATE"}})
		_ = c.Error(errors.New("late"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app", http.NoBody))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if errObj, _ := parseBody(t, rec)["error"].(map[string]interface{}); errObj["code"] != "NOT_FOUND" {
		t.Errorf("unexpected error %v", errObj)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raw", http.NoBody))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if errObj, _ := parseBody(t, rec)["error"].(map[string]interface{}); errObj["code"] != "INTERNAL_ERROR" {
		t.Errorf("unexpected error %v", errObj)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bind", http.NoBody))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if errObj, _ := parseBody(t, rec)["error"].(map[string]interface{}); errObj["code"] != "INVALID_INPUT" {
		t.Errorf("unexpected error %v", errObj)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/written", http.NoBody))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if errObj, _ := parseBody(t, rec)["error"].(map[string]interface{}); errObj["code"] != "DUPLICATE" {
		t.Errorf("response was rewritten: %v", errObj)
	}
}

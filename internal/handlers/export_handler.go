package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pennywise/internal/services"
)

// ExportHandler serves transaction history as CSV.
type ExportHandler struct {
	exportService services.ExportServicer
	now           func() time.Time
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService services.ExportServicer) *ExportHandler {
	return &ExportHandler{exportService: exportService, now: time.Now}
}

// ExportCSV handles downloading transactions as a CSV file
// @Summary     Export transactions
// @Description Download matching transactions as CSV, newest first
// @Tags        transactions
// @Produce     text/csv
// @Security    BearerAuth
// @Param       account_id query string false "Filter by account ID"
// @Param       from_date  query string false "Filter by start date (YYYY-MM-DD)"
// @Param       to_date    query string false "Filter by end date (YYYY-MM-DD)"
// @Param       type       query string false "Filter by transaction type"
// @Param       category   query string false "Filter by category name"
// @Success     200 {file} file "CSV file"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/export [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Buffer so a store failure can still produce a JSON error.
	var buf bytes.Buffer
	if _, err := h.exportService.ExportCSV(c.Request.Context(), userID, filter, &buf); err != nil {
		respondWithError(c, err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.csv", h.now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pennywise/internal/advisor"
	apperrors "pennywise/internal/errors"
	"pennywise/internal/services"
)

// maxReceiptBytes bounds receipt image uploads.
const maxReceiptBytes = 10 << 20

// ReviewHandler exposes AI-assisted review of transactions.
type ReviewHandler struct {
	reviewService services.ReviewServicer
	auditService  services.AuditServicer
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService services.ReviewServicer, auditService services.AuditServicer) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, auditService: auditService}
}

// ReviewRequest carries the free-form instructions for a review run.
// Transactions are selected with the usual listing query parameters.
type ReviewRequest struct {
	Instructions string `json:"instructions" binding:"max=2000"`
	Limit        int    `json:"limit" binding:"omitempty,min=1,max=1000"`
}

// ApplySuggestionsRequest lists the suggestions the user accepted.
type ApplySuggestionsRequest struct {
	Suggestions []advisor.Suggestion `json:"suggestions" binding:"required,min=1,max=500,dive"`
}

// Review asks the model for category, description, and type suggestions
// @Summary     Review transactions
// @Description Send matching transactions to the suggestion service in batches. Nothing is changed until the suggestions are applied.
// @Tags        review
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       account_id query string        false "Filter by account ID"
// @Param       from_date  query string        false "Filter by start date (YYYY-MM-DD)"
// @Param       to_date    query string        false "Filter by end date (YYYY-MM-DD)"
// @Param       category   query string        false "Filter by category name"
// @Param       request    body  ReviewRequest false "Instructions"
// @Success     200 {object} services.ReviewResult "Suggestions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     502 {object} ErrorResponse "Suggestion service failed"
// @Failure     503 {object} ErrorResponse "Suggestion service not configured"
// @Router      /review [post]
func (h *ReviewHandler) Review(c *gin.Context) {
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

	var req ReviewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	result, err := h.reviewService.Review(c.Request.Context(), userID, services.ReviewRequest{
		Filter:       filter,
		Instructions: req.Instructions,
		Limit:        req.Limit,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApplySuggestions applies accepted suggestions as ordinary transaction updates
// @Summary     Apply suggestions
// @Description Apply each suggestion through the normal update path so balances stay correct. Failures are reported per suggestion.
// @Tags        review
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ApplySuggestionsRequest true "Accepted suggestions"
// @Success     200 {object} services.ApplyResult "Apply summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /review/apply [post]
func (h *ReviewHandler) ApplySuggestions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ApplySuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.reviewService.ApplySuggestions(c.Request.Context(), userID, req.Suggestions)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditApplySuggestions, "transaction", "", c.ClientIP(),
		map[string]any{"applied": result.Applied, "skipped": result.Skipped})

	c.JSON(http.StatusOK, result)
}

// ScanReceipt extracts a draft transaction from a receipt photo
// @Summary     Scan receipt
// @Description Read a receipt image and return a draft transaction. Nothing is saved.
// @Tags        review
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       image formData file true "Receipt image"
// @Success     200 {object} advisor.Receipt "Draft transaction"
// @Failure     400 {object} ErrorResponse "Invalid image"
// @Failure     413 {object} ErrorResponse "Image too large"
// @Failure     502 {object} ErrorResponse "Suggestion service failed"
// @Failure     503 {object} ErrorResponse "Suggestion service not configured"
// @Router      /review/receipt [post]
func (h *ReviewHandler) ScanReceipt(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		respondWithError(c, uploadError(err, "image"))
		return
	}
	data, err := readUpload(header, maxReceiptBytes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	receipt, err := h.reviewService.ScanReceipt(c.Request.Context(), userID, data, mimeType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"receipt": receipt})
}

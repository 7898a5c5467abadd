package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/services"
	"pennywise/internal/uuid"
)

// ImportHandler handles statement uploads.
type ImportHandler struct {
	importService services.ImportServicer
	auditService  services.AuditServicer
	maxBytes      int64
}

// NewImportHandler creates a new ImportHandler. Uploads larger than maxBytes
// are rejected before they reach the parser.
func NewImportHandler(importService services.ImportServicer, auditService services.AuditServicer, maxBytes int64) *ImportHandler {
	return &ImportHandler{importService: importService, auditService: auditService, maxBytes: maxBytes}
}

// ImportStatement handles a CSV statement upload
// @Summary     Import a statement
// @Description Parse a bank or generic CSV export, skip rows already imported, and update the account balance
// @Tags        imports
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file       formData file   true  "CSV statement"
// @Param       account_id formData string false "Account to link the rows to"
// @Success     200 {object} services.ImportResult "Import summary"
// @Failure     400 {object} ErrorResponse "Invalid or empty file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     413 {object} ErrorResponse "File too large"
// @Router      /imports [post]
func (h *ImportHandler) ImportStatement(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var accountID *string
	if v := strings.TrimSpace(c.PostForm("account_id")); v != "" {
		if !uuid.IsValid(v) {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid account_id"))
			return
		}
		accountID = &v
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, uploadError(err, "file"))
		return
	}
	data, err := readUpload(header, h.maxBytes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.importService.ImportStatement(c.Request.Context(), userID, services.ImportRequest{
		AccountID: accountID,
		Filename:  header.Filename,
		Data:      data,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	resourceID := ""
	if accountID != nil {
		resourceID = *accountID
	}
	h.auditService.Log(c.Request.Context(), userID, services.AuditImportStatement, "account", resourceID, c.ClientIP(),
		map[string]any{
			"filename":   header.Filename,
			"format":     result.Format,
			"imported":   result.Imported,
			"duplicates": result.Duplicates,
			"strategy":   result.Strategy,
		})

	c.JSON(http.StatusOK, gin.H{"import": result})
}

// readUpload reads at most maxBytes of an uploaded file.
func readUpload(header *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, apperrors.ErrFileTooLarge
	}
	f, err := header.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, apperrors.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, apperrors.ErrEmptyFile
	}
	return data, nil
}

// uploadError maps a failed form file lookup to an input error.
func uploadError(err error, field string) error {
	if errors.Is(err, http.ErrMissingFile) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "a file is required in the \""+field+"\" field")
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.ErrFileTooLarge
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err)
}

package services

import (
	"context"
	"encoding/json"

	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/store"
)

// Audit actions.
const (
	AuditCreateTransaction = "CREATE_TRANSACTION"
	AuditUpdateTransaction = "UPDATE_TRANSACTION"
	AuditDeleteTransaction = "DELETE_TRANSACTION"
	AuditImportStatement   = "IMPORT_STATEMENT"
	AuditApplySuggestions  = "APPLY_SUGGESTIONS"
	AuditCreateAccount     = "CREATE_ACCOUNT"
	AuditUpdateAccount     = "UPDATE_ACCOUNT"
	AuditDeleteAccount     = "DELETE_ACCOUNT"
	AuditResolveFlag       = "RESOLVE_FLAG"
	AuditCreateCategory    = "CREATE_CATEGORY"
	AuditUpdateCategory    = "UPDATE_CATEGORY"
	AuditDeleteCategory    = "DELETE_CATEGORY"
	AuditCreateBudget      = "CREATE_BUDGET"
	AuditUpdateBudget      = "UPDATE_BUDGET"
	AuditDeleteBudget      = "DELETE_BUDGET"
)

// auditService handles audit log recording.
type auditService struct {
	store store.AuditStore
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(s store.AuditStore) AuditServicer {
	return &auditService{store: s}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.store.InsertAuditLog(ctx, entry); err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SyncUserHeader names the user a sync job is importing for.
const SyncUserHeader = "X-User-ID"

// maxUserIDLen matches the width of the user_id columns.
const maxUserIDLen = 64

// SyncAuthMiddleware admits scheduled statement sync jobs. The X-API-Key
// header must match the configured key, and X-User-ID selects the user whose
// data the job may touch.
func SyncAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": gin.H{"code": "SYNC_NOT_CONFIGURED", "message": "Sync endpoints are not configured"}})
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": gin.H{"code": "INVALID_API_KEY", "message": "Invalid or missing API key"}})
			return
		}
		userID := strings.TrimSpace(c.GetHeader(SyncUserHeader))
		if userID == "" || len(userID) > maxUserIDLen {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				gin.H{"error": gin.H{"code": "INVALID_INPUT", "message": "A valid " + SyncUserHeader + " header is required"}})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

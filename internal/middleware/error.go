package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
)

// ErrorHandler turns errors attached with c.Error into the JSON error body
// every handler uses. Bind errors become INVALID_INPUT, AppErrors keep their
// code, and anything else is logged and hidden behind INTERNAL_ERROR.
// Handlers that already wrote a response are left alone.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		appErr := toAppError(last)

		log := logger.Get()
		if appErr.Internal != nil || appErr.StatusCode >= 500 {
			log.Errorw("request error",
				"request_id", c.GetString(requestIDKey),
				"code", appErr.Code,
				"error", last.Err.Error(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
		}

		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
	}
}

func toAppError(ginErr *gin.Error) *apperrors.AppError {
	var appErr *apperrors.AppError
	switch {
	case errors.As(ginErr.Err, &appErr):
		return appErr
	case ginErr.IsType(gin.ErrorTypeBind):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, ginErr.Err.Error())
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, ginErr.Err)
	}
}

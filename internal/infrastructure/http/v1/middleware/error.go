package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// It is the only place error bodies are written.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := ErrorResponse(c, err)
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(c.Request.Context(), "request failed",
				"status", status,
				"error", err,
			)
		case apperror.IsValidation(err):
			logger.Debug(c.Request.Context(), "request rejected by validation",
				"path", c.FullPath(),
				"details", body["details"],
			)
		}
		c.JSON(status, body)
	}
}

// ErrorResponse renders err as the API error body. Unknown errors hide their
// message from the client.
func ErrorResponse(c *gin.Context, err error) (int, gin.H) {
	if appErr, ok := apperror.AsAppError(err); ok {
		details := appErr.Details
		if details == nil {
			details = map[string]any{}
		}
		return appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": details,
		}
	}

	return http.StatusInternalServerError, gin.H{
		"code":    apperror.CodeInternal,
		"message": "Internal server error",
		"details": map[string]any{
			"request_id": c.GetString("request_id"),
		},
	}
}

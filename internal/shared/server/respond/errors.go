package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/shared/telemetry"
)

// Error codes shared by the API handlers. Clients branch on these, never on messages.
const (
	CodeValidation        = "validation_error"
	CodeNotFound          = "not_found"
	CodeAlreadyProcessing = "already_processing"
	CodeRateLimited       = "rate_limited"
	CodeStreamUnavailable = "stream_unavailable"
	CodeInternal          = "internal_error"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if fileID := c.GetString("fileId"); fileID != "" {
		fields["file_id"] = fileID
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

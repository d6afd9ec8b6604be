package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/shared/telemetry"
)

// FileIDKey is set by handlers that act on a single file.
const FileIDKey = "fileId"

// Logging emits request.complete per request, or stream.closed when the
// response was a process_log event stream. 5xx responses log at error.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fileID, _ := c.Get(FileIDKey)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"file_id":     fileID,
			"bytes_out":   c.Writer.Size(),
			"client_ip":   c.ClientIP(),
		}
		if group := c.GetString(RateGroupKey); group != "" {
			fields["rate_group"] = group
		}

		msg := "request.complete"
		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream") {
			msg = "stream.closed"
		}
		if status >= http.StatusInternalServerError {
			telemetry.Error(msg, fields)
			return
		}
		telemetry.Info(msg, fields)
	}
}

package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/shared/server/respond"
	"lasdesk/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 internal_error response. Once
// a stream has started writing, the connection is only closed.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fileID, _ := c.Get(FileIDKey)
			telemetry.Error("http.panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"file_id":    fileID,
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Unexpected server error", nil)
		}()
		c.Next()
	}
}

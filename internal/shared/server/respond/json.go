package respond

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes a 201 response for newly stored files.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}

// Accepted writes a 202 response for work handed to a background job.
func Accepted(c *gin.Context, payload any) {
	JSON(c, http.StatusAccepted, payload)
}

// Count writes {key: n} for bulk operations.
func Count(c *gin.Context, key string, n int) {
	OK(c, gin.H{key: n})
}

// Attachment streams body as a download named fileName. It returns the
// number of bytes copied.
func Attachment(c *gin.Context, fileName string, body io.Reader) (int64, error) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	return io.Copy(c.Writer, body)
}

// EventStream writes the headers of a server-sent event stream and flushes
// them so the client sees the connection open.
func EventStream(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	telemetry.Configure(telemetry.Options{Output: &buf, Level: "info", JSON: true})
	defer telemetry.Configure(telemetry.Options{Output: os.Stdout, Level: "info", JSON: true})

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.POST("/api/v1/files/:id/process", func(c *gin.Context) {
		c.Set(FileIDKey, c.Param("id"))
		c.JSON(http.StatusAccepted, gin.H{"file_id": 42, "started": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/42/process", nil)
	req.Header.Set("X-Request-Id", "req-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatalf("expected log output")
	}
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "file_id", "duration_ms", "status", "bytes_out", "client_ip"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["request_id"] != "req-1" {
		t.Fatalf("unexpected request_id: %v", payload["request_id"])
	}
	if payload["file_id"] != "42" {
		t.Fatalf("unexpected file_id: %v", payload["file_id"])
	}
	if payload["msg"] != "request.complete" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
}

func TestLoggingMarksEventStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	telemetry.Configure(telemetry.Options{Output: &buf, Level: "info", JSON: true})
	defer telemetry.Configure(telemetry.Options{Output: os.Stdout, Level: "info", JSON: true})

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.GET("/api/v1/events", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.String(http.StatusOK, ": heartbeat\n\n")
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))

	if !strings.Contains(buf.String(), `"msg":"stream.closed"`) {
		t.Fatalf("expected stream.closed, got %s", buf.String())
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = RequestIDFromContext(c)
		c.Status(http.StatusNoContent)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if seen == "" {
		t.Fatalf("expected generated request id")
	}
	if got := resp.Header().Get("X-Request-Id"); got != seen {
		t.Fatalf("expected header %q, got %q", seen, got)
	}
}

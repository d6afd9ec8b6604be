package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestIDReusesOnlyWellFormedIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]bool{
		"req-123_abc.1":         true,
		"":                      false,
		"has space":             false,
		"new\nline":             false,
		strings.Repeat("a", 65): false,
	}
	for inbound, reused := range cases {
		router := gin.New()
		router.Use(RequestID())
		var seen string
		router.GET("/", func(c *gin.Context) {
			seen = RequestIDFromContext(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, inbound)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		echoed := resp.Header().Get(RequestIDHeader)
		if echoed == "" || echoed != seen {
			t.Fatalf("%q: expected echoed id to match context, got %q vs %q", inbound, echoed, seen)
		}
		if reused != (echoed == inbound) {
			t.Fatalf("%q: reused=%v, echoed %q", inbound, reused, echoed)
		}
	}
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/api/v1/files/:id", func(c *gin.Context) {
		c.Set(FileIDKey, int64(7))
		panic("boom")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/files/7", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"code":"internal_error"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

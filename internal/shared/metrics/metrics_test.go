package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(processingStarted)
	IncProcessingStarted()
	if got := testutil.ToFloat64(processingStarted); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}

	AddCurvesInserted(0)
	AddCurvesInserted(-3)
	beforeCurves := testutil.ToFloat64(curvesInserted)
	AddCurvesInserted(250)
	if got := testutil.ToFloat64(curvesInserted); got != beforeCurves+250 {
		t.Fatalf("expected %v, got %v", beforeCurves+250, got)
	}
}

func TestHandlerRendersPrometheusText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncProcessingCompleted()
	ObserveProcessingDurationMs(420)

	r := gin.New()
	r.GET("/metrics", Handler())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, name := range []string{"processing_completed_total", "processing_duration_ms_bucket", "event_stream_subscribers"} {
		if !strings.Contains(body, name) {
			t.Fatalf("metrics output missing %s", name)
		}
	}
}

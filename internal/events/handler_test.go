package events

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHandlerStreamsFilteredEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broker := NewMemoryBroker()
	h := NewHandler(broker)
	h.Heartbeat = 20 * time.Millisecond

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?file_id=5", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for broker.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	_ = broker.Publish(ctx, ProcessLog{FileID: 4, Message: "other", Step: StepStart})
	_ = broker.Publish(ctx, ProcessLog{FileID: 5, Message: "Done.", Step: StepDone, WellID: Int64(2)})

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var sawHeartbeat, sawEvent bool
	timeout := time.After(2 * time.Second)
	for !(sawHeartbeat && sawEvent) {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream ended early")
			}
			if strings.HasPrefix(line, ":") {
				sawHeartbeat = true
			}
			if strings.HasPrefix(line, "data:") {
				if strings.Contains(line, `"file_id":4`) {
					t.Fatalf("event for another file leaked: %s", line)
				}
				if strings.Contains(line, `"file_id":5`) && strings.Contains(line, `"well_id":2`) {
					sawEvent = true
				}
			}
		case <-timeout:
			t.Fatalf("heartbeat=%v event=%v", sawHeartbeat, sawEvent)
		}
	}
}

func TestHandlerRejectsBadFileID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewMemoryBroker()).RegisterRoutes(r.Group("/api/v1"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/events?file_id=x", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

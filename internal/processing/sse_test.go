package processing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/events"
)

func TestSSETransportAgainstEventsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broker := events.NewMemoryBroker()
	defer broker.Close()
	h := events.NewHandler(broker)
	h.Heartbeat = 10 * time.Millisecond
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	transport := NewSSETransport(srv.URL+"/api/v1/events", srv.Client(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []events.ProcessLog
	errCh := make(chan error, 1)
	go func() {
		errCh <- transport.Stream(ctx, func(ev events.ProcessLog) {
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
		})
	}()

	eventually(t, func() bool { return broker.Subscribers() == 1 }, "stream subscribed")
	_ = broker.Publish(context.Background(), events.ProcessLog{FileID: 2, Message: "Parsing", Step: events.StepParse})
	_ = broker.Publish(context.Background(), events.ProcessLog{FileID: 2, Message: "Inserting", Step: events.StepInsert, Inserted: id(5), Total: id(10)})

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, "two events delivered")
	mu.Lock()
	if got[1].Inserted == nil || *got[1].Inserted != 5 || got[0].Step != events.StepParse {
		t.Fatalf("unexpected events %+v", got)
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not stop after cancel")
	}
}

func TestSSETransportReportsServerClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": heartbeat\n\n")
		fmt.Fprint(w, "event: other\ndata: {\"file_id\":1,\"message\":\"skip\"}\n\n")
		fmt.Fprint(w, "event: process_log\ndata: {\"file_id\":1,\"message\":\"keep\",\"step\":\"done\"}\n\n")
		fmt.Fprint(w, "data: not json\n\n")
	}))
	defer srv.Close()

	var got []events.ProcessLog
	err := NewSSETransport(srv.URL, srv.Client(), nil).Stream(context.Background(), func(ev events.ProcessLog) {
		got = append(got, ev)
	})
	if !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed, got %v", err)
	}
	if len(got) != 1 || got[0].Message != "keep" || got[0].Step != events.StepDone {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestSSETransportRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewSSETransport(srv.URL, srv.Client(), nil).Stream(context.Background(), func(events.ProcessLog) {})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

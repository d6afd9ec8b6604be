package events

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/shared/metrics"
	"lasdesk/internal/shared/server/middleware"
	"lasdesk/internal/shared/server/respond"
	"lasdesk/internal/shared/telemetry"
)

// DefaultHeartbeat is how often an idle stream receives a comment line.
const DefaultHeartbeat = 15 * time.Second

// Handler serves the process_log push channel as server-sent events.
type Handler struct {
	Broker    Broker
	Heartbeat time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(broker Broker) *Handler {
	return &Handler{Broker: broker, Heartbeat: DefaultHeartbeat}
}

// RegisterRoutes attaches the stream route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.stream)
}

// stream forwards every broker event to the client. An optional file_id
// query narrows the stream to one file.
func (h *Handler) stream(c *gin.Context) {
	var onlyFile int64
	if raw := c.Query("file_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid file_id", nil)
			return
		}
		onlyFile = id
		c.Set(middleware.FileIDKey, raw)
	}

	ctx := c.Request.Context()
	sub, err := h.Broker.Subscribe(ctx)
	if err != nil {
		respond.Error(c, http.StatusServiceUnavailable, respond.CodeStreamUnavailable, "event stream unavailable", nil)
		return
	}
	defer sub.Close()

	metrics.StreamOpened()
	defer metrics.StreamClosed()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	respond.EventStream(c)

	reqID := middleware.RequestIDFromContext(c)
	telemetry.Info("events.stream_open", map[string]any{"request_id": reqID, "file_id": onlyFile})
	defer telemetry.Info("events.stream_closed", map[string]any{"request_id": reqID})

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			if err := sub.Err(); err != nil {
				telemetry.Warn("events.stream_broken", map[string]any{"request_id": reqID, "error": err.Error()})
			}
			return
		case <-ticker.C:
			if _, err := io.WriteString(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if onlyFile != 0 && ev.FileID != onlyFile {
				continue
			}
			c.SSEvent(EventName, ev)
			c.Writer.Flush()
		}
	}
}

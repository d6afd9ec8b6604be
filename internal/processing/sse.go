package processing

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lasdesk/internal/events"
	"lasdesk/internal/shared/telemetry"
)

// ErrStreamClosed is returned when the server ends the stream.
var ErrStreamClosed = errors.New("processing: event stream closed by server")

// Transport delivers every process_log event on the shared push channel.
// Stream blocks until ctx is cancelled or the connection fails.
type Transport interface {
	Stream(ctx context.Context, deliver func(events.ProcessLog)) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, deliver func(events.ProcessLog)) error

func (f TransportFunc) Stream(ctx context.Context, deliver func(events.ProcessLog)) error {
	return f(ctx, deliver)
}

// SSETransport reads the server-sent event stream at URL.
type SSETransport struct {
	URL    string
	Client *http.Client
	Logger telemetry.Logger
}

// NewSSETransport constructs an SSETransport. A nil client uses a
// http.Client without timeout since the stream is long lived.
func NewSSETransport(url string, client *http.Client, logger telemetry.Logger) *SSETransport {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = telemetry.Nop{}
	}
	return &SSETransport{URL: url, Client: client, Logger: logger}
}

func (t *SSETransport) Stream(ctx context.Context, deliver func(events.ProcessLog)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}
	if err := t.read(ctx, resp.Body, deliver); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrStreamClosed
}

// read dispatches one event per blank-line terminated block. Comment lines
// such as heartbeats are skipped.
func (t *SSETransport) read(ctx context.Context, body io.Reader, deliver func(events.ProcessLog)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		name string
		data strings.Builder
	)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 && (name == "" || name == events.EventName) {
				ev, err := events.Decode([]byte(data.String()))
				if err != nil {
					t.Logger.Warn("processing.sse_decode_failed", map[string]any{"error": err.Error()})
				} else {
					deliver(ev)
				}
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

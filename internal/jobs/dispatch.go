package jobs

import (
	"context"
	"fmt"
	"sync"

	"lasdesk/internal/events"
	"lasdesk/internal/files"
	"lasdesk/internal/shared/metrics"
	"lasdesk/internal/shared/telemetry"
)

// Processor runs a processing job to completion.
type Processor interface {
	Run(ctx context.Context, fileID int64, requestID string) error
}

// LocalDispatcher runs jobs on goroutines inside the API process. A file
// already running is rejected with files.ErrAlreadyProcessing.
type LocalDispatcher struct {
	Runner Processor
	Events events.Publisher

	mu       sync.Mutex
	inflight map[int64]struct{}
	wg       sync.WaitGroup
}

// NewLocalDispatcher constructs a LocalDispatcher.
func NewLocalDispatcher(runner Processor, pub events.Publisher) *LocalDispatcher {
	return &LocalDispatcher{Runner: runner, Events: pub, inflight: make(map[int64]struct{})}
}

// Enqueue starts the job in the background and returns immediately.
func (d *LocalDispatcher) Enqueue(ctx context.Context, fileID int64, requestID string) error {
	d.mu.Lock()
	if d.inflight == nil {
		d.inflight = make(map[int64]struct{})
	}
	if _, ok := d.inflight[fileID]; ok {
		d.mu.Unlock()
		return files.ErrAlreadyProcessing
	}
	d.inflight[fileID] = struct{}{}
	d.mu.Unlock()

	d.wg.Add(1)
	go d.runAsync(context.WithoutCancel(ctx), fileID, requestID)
	return nil
}

func (d *LocalDispatcher) runAsync(ctx context.Context, fileID int64, requestID string) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.inflight, fileID)
		d.mu.Unlock()
	}()
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncProcessingFailed()
			telemetry.Error("jobs.panic", map[string]any{"file_id": fileID, "request_id": requestID, "error": rec})
			if d.Events != nil {
				_ = d.Events.Publish(ctx, events.ProcessLog{FileID: fileID, Message: fmt.Sprintf("panic: %v", rec), Step: events.StepError})
			}
		}
	}()
	_ = d.Runner.Run(ctx, fileID, requestID)
}

// Wait blocks until every started job has returned.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}

// Running reports whether fileID has a job in flight.
func (d *LocalDispatcher) Running(fileID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[fileID]
	return ok
}

var _ files.Processor = (*LocalDispatcher)(nil)

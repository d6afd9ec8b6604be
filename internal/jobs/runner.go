// Package jobs runs LAS processing jobs and reports their progress as
// process_log events.
package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"lasdesk/internal/events"
	"lasdesk/internal/files"
	"lasdesk/internal/las"
	"lasdesk/internal/shared/metrics"
	"lasdesk/internal/shared/storage/object"
	"lasdesk/internal/shared/telemetry"
	"lasdesk/internal/wells"
)

const minInsertEmitInterval = 50000

// ErrAlreadyProcessed is returned when the file was processed before.
var ErrAlreadyProcessed = errors.New("file already processed")

// Runner executes the processing pipeline for one file.
type Runner struct {
	Files  files.Repo
	Wells  *wells.Service
	Curves wells.CurveRepo
	Store  object.ObjectStore
	Events events.Publisher
	Now    func() time.Time
}

// Run downloads, parses and stores the curves of fileID. Every stage emits
// a process_log event; any failure emits a single error event.
func (r *Runner) Run(ctx context.Context, fileID int64, requestID string) (err error) {
	started := r.now()
	metrics.IncProcessingStarted()
	defer func() {
		metrics.ObserveProcessingDurationMs(float64(r.now().Sub(started).Milliseconds()))
		fields := map[string]any{
			"request_id":  requestID,
			"file_id":     fileID,
			"duration_ms": r.now().Sub(started).Milliseconds(),
		}
		if err != nil {
			metrics.IncProcessingFailed()
			fields["error"] = err.Error()
			telemetry.Error("jobs.failed", fields)
			r.emit(ctx, events.ProcessLog{FileID: fileID, Message: err.Error(), Step: events.StepError})
			return
		}
		metrics.IncProcessingCompleted()
		telemetry.Info("jobs.completed", fields)
	}()

	r.emit(ctx, events.ProcessLog{FileID: fileID, Message: "Starting processing", Step: events.StepStart})

	f, err := r.Files.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			return files.ErrNotFound
		}
		return fmt.Errorf("load file: %w", err)
	}
	if f.Processed {
		return ErrAlreadyProcessed
	}
	oldWellID := f.WellID

	r.emit(ctx, events.ProcessLog{FileID: fileID, Message: "Downloading " + f.StorageKey, Step: events.StepDownload})
	data, err := r.download(ctx, f.StorageKey)
	if err != nil {
		return err
	}

	r.emit(ctx, events.ProcessLog{FileID: fileID, Message: fmt.Sprintf("Parsing LAS (%d bytes)", len(data)), Step: events.StepParse})
	doc, err := las.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse LAS: %w", err)
	}
	wellName := doc.WellName()
	r.emit(ctx, events.ProcessLog{FileID: fileID, Message: fmt.Sprintf("Well name from LAS: %q", wellName), Step: events.StepWell})

	well, created, err := r.Wells.FindOrCreate(ctx, wellName)
	if err != nil {
		return fmt.Errorf("resolve well: %w", err)
	}
	if created {
		r.emit(ctx, events.ProcessLog{FileID: fileID, Message: fmt.Sprintf("Created new well id=%d name=%q", well.ID, well.Name), Step: events.StepWell})
	} else {
		r.emit(ctx, events.ProcessLog{FileID: fileID, Message: fmt.Sprintf("Using existing well id=%d, clearing old curves", well.ID), Step: events.StepWell})
		if err := r.Curves.DeleteByWell(ctx, well.ID); err != nil {
			return fmt.Errorf("clear curves: %w", err)
		}
	}

	samples := doc.Points()
	points := make([]wells.CurvePoint, len(samples))
	for i, s := range samples {
		points[i] = wells.CurvePoint{WellID: well.ID, Depth: s.Depth, CurveName: s.Curve, Value: s.Value}
	}
	total := len(points)
	r.emit(ctx, events.ProcessLog{
		FileID:  fileID,
		Message: fmt.Sprintf("Extracted %d curve records", total),
		Step:    events.StepCurves,
		Total:   events.Int64(int64(total)),
	})

	if total > 0 {
		if err := r.Curves.BulkInsert(ctx, points, r.insertProgress(ctx, fileID, total)); err != nil {
			return fmt.Errorf("insert curves: %w", err)
		}
		metrics.AddCurvesInserted(total)
		r.emit(ctx, events.ProcessLog{FileID: fileID, Message: "Inserted curves into DB", Step: events.StepCurvesDone})
	}

	processed := true
	if _, err := r.Files.Update(ctx, fileID, files.Patch{WellID: &well.ID, Processed: &processed}); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	if oldWellID != well.ID {
		if err := r.dropEmptyPlaceholder(ctx, fileID, oldWellID); err != nil {
			telemetry.Warn("jobs.placeholder_cleanup_failed", map[string]any{"file_id": fileID, "well_id": oldWellID, "error": err.Error()})
		}
	}

	r.emit(ctx, events.ProcessLog{FileID: fileID, Message: "Done.", Step: events.StepDone, WellID: events.Int64(well.ID)})
	return nil
}

// insertProgress emits at most about twenty insert events plus the final one.
func (r *Runner) insertProgress(ctx context.Context, fileID int64, total int) wells.ProgressFunc {
	interval := EmitInterval(total)
	lastEmitted := 0
	return func(inserted, total int) {
		if inserted != total && inserted-lastEmitted < interval {
			return
		}
		lastEmitted = inserted
		r.emit(ctx, events.ProcessLog{
			FileID:   fileID,
			Message:  fmt.Sprintf("Inserting curves %s/%s", thousands(inserted), thousands(total)),
			Step:     events.StepInsert,
			Inserted: events.Int64(int64(inserted)),
			Total:    events.Int64(int64(total)),
		})
	}
}

// EmitInterval is the minimum gap in inserted rows between insert events.
func EmitInterval(total int) int {
	if total/20 > minInsertEmitInterval {
		return total / 20
	}
	return minInsertEmitInterval
}

func (r *Runner) dropEmptyPlaceholder(ctx context.Context, fileID, wellID int64) error {
	remaining, err := r.Files.CountByWell(ctx, wellID)
	if err != nil || remaining > 0 {
		return err
	}
	old, err := r.Wells.Get(ctx, wellID)
	if err != nil {
		if errors.Is(err, wells.ErrNotFound) {
			return nil
		}
		return err
	}
	if old.Name != wells.UnprocessedName {
		return nil
	}
	if err := r.Wells.Remove(ctx, wellID); err != nil {
		return err
	}
	r.emit(ctx, events.ProcessLog{FileID: fileID, Message: "Removed empty Unprocessed well", Step: events.StepWell})
	return nil
}

func (r *Runner) download(ctx context.Context, key string) ([]byte, error) {
	rc, err := r.Store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return data, nil
}

func (r *Runner) emit(ctx context.Context, ev events.ProcessLog) {
	telemetry.Debug("jobs.process_log", map[string]any{"file_id": ev.FileID, "step": string(ev.Step), "message": ev.Message})
	if r.Events == nil {
		return
	}
	if err := r.Events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		telemetry.Warn("jobs.publish_failed", map[string]any{"file_id": ev.FileID, "step": string(ev.Step), "error": err.Error()})
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func thousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	pre := len(s) % 3
	if pre > 0 {
		out = append(out, s[:pre]...)
	}
	for i := pre; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}

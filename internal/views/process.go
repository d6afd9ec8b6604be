package views

import (
	"context"

	"lasdesk/internal/client"
	"lasdesk/internal/events"
	"lasdesk/internal/processing"
)

// Row is the rendered state of one file.
type Row struct {
	File          client.FileRecord
	Selected      bool
	CanProcess    bool
	Active        bool
	Progress      int
	Logs          []processing.LogEntry
	InsertPercent *int
}

// startProcessing makes fileID the active job before asking the server, so
// no early event is missed. A rejected request clears the job again.
func startProcessing(ctx context.Context, api FilesAPI, store *processing.Store, notify Notifier, fileID int64) (client.ProcessStatus, error) {
	store.SetActive(&fileID, 0)
	status, err := api.StartProcessing(ctx, fileID)
	if err != nil {
		if store.Active().IsActive(fileID) {
			store.SetActive(nil, 0)
		}
		if notify != nil {
			notify.Error("Processing failed to start: " + client.Detail(err))
		}
		return status, err
	}
	if status.AlreadyProcessed {
		if store.Active().IsActive(fileID) {
			store.SetActive(nil, 0)
		}
		if notify != nil {
			notify.Success("File already processed")
		}
		return status, nil
	}
	if notify != nil {
		notify.Success("Processing started")
	}
	return status, nil
}

// activeState returns progress, logs and the insert ratio of fileID when it
// is the active job.
func activeState(store *processing.Store, cache *processing.LogCache, fileID int64) (bool, int, []processing.LogEntry, *int) {
	job := store.Active()
	if !job.IsActive(fileID) {
		return false, 0, nil, nil
	}
	var logs []processing.LogEntry
	if cache != nil {
		logs = cache.Entries(fileID)
	}
	return true, job.Progress, logs, insertPercent(logs)
}

func insertPercent(logs []processing.LogEntry) *int {
	for i := len(logs) - 1; i >= 0; i-- {
		if p, ok := logs[i].InsertPercent(); ok {
			return &p
		}
		if logs[i].Step == events.StepCurvesDone {
			return nil
		}
	}
	return nil
}

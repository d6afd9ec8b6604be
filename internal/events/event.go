// Package events carries process_log progress events from processing jobs
// to connected stream clients.
package events

import "encoding/json"

// EventName is the SSE event name for job progress.
const EventName = "process_log"

// Step tags a process_log event with the pipeline stage that emitted it.
type Step string

const (
	StepStart      Step = "start"
	StepDownload   Step = "download"
	StepParse      Step = "parse"
	StepWell       Step = "well"
	StepCurves     Step = "curves"
	StepInsert     Step = "insert"
	StepCurvesDone Step = "curves_done"
	StepDone       Step = "done"
	StepError      Step = "error"
)

// Terminal reports whether no further events follow this step.
func (s Step) Terminal() bool {
	return s == StepDone || s == StepError
}

// ProcessLog is one progress event for a file's processing job.
type ProcessLog struct {
	FileID   int64  `json:"file_id"`
	Message  string `json:"message"`
	Step     Step   `json:"step,omitempty"`
	Inserted *int64 `json:"inserted,omitempty"`
	Total    *int64 `json:"total,omitempty"`
	WellID   *int64 `json:"well_id,omitempty"`
}

// Encode renders the event as JSON.
func (p ProcessLog) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Decode parses a JSON process_log payload.
func Decode(data []byte) (ProcessLog, error) {
	var p ProcessLog
	err := json.Unmarshal(data, &p)
	return p, err
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

package processing

import (
	"math"

	"lasdesk/internal/events"
)

var stepProgress = map[events.Step]int{
	events.StepStart:      5,
	events.StepDownload:   15,
	events.StepParse:      25,
	events.StepWell:       35,
	events.StepCurves:     40,
	events.StepInsert:     40,
	events.StepCurvesDone: 90,
	events.StepDone:       100,
}

// Estimate maps a log entry to a completion percentage. Row counts take
// precedence over the step label and never reach 100; ok is false when the
// entry carries nothing to go on.
func Estimate(step events.Step, inserted, total *int64) (int, bool) {
	if total != nil && *total > 0 && inserted != nil && *inserted >= 0 {
		ratio := float64(*inserted) / float64(*total)
		return min(99, 40+int(math.Round(50*ratio))), true
	}
	p, ok := stepProgress[step]
	return p, ok
}

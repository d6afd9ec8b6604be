package wells

import "time"

// UnprocessedName is the placeholder well for files whose header could not
// be read at upload time.
const UnprocessedName = "Unprocessed"

// Well represents a wellbore.
type Well struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// CurvePoint is one stored sample of a named curve at a depth.
type CurvePoint struct {
	WellID    int64
	Depth     float64
	CurveName string
	Value     *float64
}

// DepthRange is the min/max depth covered by a well's curves.
type DepthRange struct {
	Min float64
	Max float64
}

// ProgressFunc is called after each inserted batch.
type ProgressFunc func(inserted, total int)

package wells

import (
	"fmt"
	"time"
)

// WellResponse is the outward-facing representation of a well.
type WellResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(w Well) WellResponse {
	return WellResponse{ID: w.ID, Name: w.Name, CreatedAt: w.CreatedAt}
}

// CurveQueryRequest is the body of the curve data and interpretation routes.
type CurveQueryRequest struct {
	CurveNames []string `json:"curve_names"`
	DepthMin   *float64 `json:"depth_min"`
	DepthMax   *float64 `json:"depth_max"`
}

// SeriesResponse carries depth-aligned curve values; missing samples are null.
type SeriesResponse struct {
	WellID int64                 `json:"well_id"`
	Depth  []float64             `json:"depth"`
	Curves map[string][]*float64 `json:"curves"`
}

func (r CurveQueryRequest) toQuery(wellID int64) (CurveQuery, error) {
	if r.DepthMin == nil || r.DepthMax == nil {
		return CurveQuery{}, fmt.Errorf("%w: depth_min and depth_max are required", ErrInvalidInput)
	}
	return CurveQuery{WellID: wellID, CurveNames: r.CurveNames, DepthMin: *r.DepthMin, DepthMax: *r.DepthMax}, nil
}

package wells

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// MaxAnomalies caps the anomalies returned by one interpretation.
const MaxAnomalies = 50

// CurveQuery selects named curves of a well within a depth window.
type CurveQuery struct {
	WellID     int64
	CurveNames []string
	DepthMin   float64
	DepthMax   float64
}

func (q CurveQuery) validate() error {
	if q.WellID <= 0 {
		return fmt.Errorf("%w: well id", ErrInvalidInput)
	}
	if len(q.CurveNames) == 0 {
		return fmt.Errorf("%w: curve_names is required", ErrInvalidInput)
	}
	for _, n := range q.CurveNames {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: empty curve name", ErrInvalidInput)
		}
	}
	if math.IsNaN(q.DepthMin) || math.IsNaN(q.DepthMax) || q.DepthMin > q.DepthMax {
		return fmt.Errorf("%w: depth_min must not exceed depth_max", ErrInvalidInput)
	}
	return nil
}

// Series is depth-indexed curve data. Values[name][i] belongs to Depth[i]
// and is nil where the curve has no sample at that depth.
type Series struct {
	Depth  []float64
	Values map[string][]*float64
}

// Anomaly is a sample more than two standard deviations from its curve mean.
type Anomaly struct {
	Depth     float64 `json:"depth"`
	CurveName string  `json:"curve_name"`
	Value     float64 `json:"value"`
	Mean      float64 `json:"mean"`
	Deviation string  `json:"deviation"`
}

// CurveStats summarises the valid samples of one curve.
type CurveStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// Insight pairs a curve's statistics with a short reading of them.
type Insight struct {
	Curve          string     `json:"curve"`
	Statistics     CurveStats `json:"statistics"`
	Interpretation string     `json:"interpretation"`
}

// Interpretation is the deterministic analysis of a curve window.
type Interpretation struct {
	Summary   string    `json:"summary"`
	Anomalies []Anomaly `json:"anomalies"`
	Insights  []Insight `json:"insights"`
}

// CurveData returns the requested curves of an existing well aligned on
// the distinct depths in the window.
func (s *Service) CurveData(ctx context.Context, q CurveQuery) (Series, error) {
	points, err := s.window(ctx, q)
	if err != nil {
		return Series{}, err
	}
	return buildSeries(q.CurveNames, points), nil
}

// Interpret computes per-curve statistics, flags samples beyond two
// standard deviations and reads the means against typical log ranges.
func (s *Service) Interpret(ctx context.Context, q CurveQuery) (Interpretation, error) {
	points, err := s.window(ctx, q)
	if err != nil {
		return Interpretation{}, err
	}
	return interpret(q.CurveNames, points), nil
}

func (s *Service) window(ctx context.Context, q CurveQuery) ([]CurvePoint, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, q.WellID); err != nil {
		return nil, err
	}
	return s.Curves.Window(ctx, q.WellID, dedupe(q.CurveNames), q.DepthMin, q.DepthMax)
}

func buildSeries(names []string, points []CurvePoint) Series {
	depths := make([]float64, 0, len(points))
	seen := make(map[float64]struct{}, len(points))
	for _, p := range points {
		if _, ok := seen[p.Depth]; ok {
			continue
		}
		seen[p.Depth] = struct{}{}
		depths = append(depths, p.Depth)
	}
	sort.Float64s(depths)
	index := make(map[float64]int, len(depths))
	for i, d := range depths {
		index[d] = i
	}

	out := Series{Depth: depths, Values: make(map[string][]*float64, len(names))}
	for _, n := range names {
		out.Values[n] = make([]*float64, len(depths))
	}
	for _, p := range points {
		col, ok := out.Values[p.CurveName]
		if !ok || p.Value == nil {
			continue
		}
		v := *p.Value
		col[index[p.Depth]] = &v
	}
	return out
}

type sample struct {
	depth, value float64
}

func interpret(names []string, points []CurvePoint) Interpretation {
	byCurve := make(map[string][]sample)
	for _, p := range points {
		if p.Value == nil || math.IsNaN(*p.Value) || math.IsInf(*p.Value, 0) {
			continue
		}
		byCurve[p.CurveName] = append(byCurve[p.CurveName], sample{depth: p.Depth, value: *p.Value})
	}

	out := Interpretation{Anomalies: []Anomaly{}, Insights: []Insight{}}
	var summary []string
	for _, name := range dedupe(names) {
		samples := byCurve[name]
		if len(samples) == 0 {
			continue
		}
		values := make([]float64, len(samples))
		for i, sm := range samples {
			values[i] = sm.value
		}
		st := describe(values)

		high, low := st.Mean+2*st.Std, st.Mean-2*st.Std
		for _, sm := range samples {
			switch {
			case sm.value > high:
				out.Anomalies = append(out.Anomalies, Anomaly{Depth: sm.depth, CurveName: name, Value: sm.value, Mean: round4(st.Mean), Deviation: "high"})
			case sm.value < low:
				out.Anomalies = append(out.Anomalies, Anomaly{Depth: sm.depth, CurveName: name, Value: sm.value, Mean: round4(st.Mean), Deviation: "low"})
			}
		}

		summary = append(summary, fmt.Sprintf("%s: min=%.2f, max=%.2f, mean=%.2f, std=%.2f", name, st.Min, st.Max, st.Mean, st.Std))
		out.Insights = append(out.Insights, Insight{
			Curve: name,
			Statistics: CurveStats{
				Min:   round4(st.Min),
				Max:   round4(st.Max),
				Mean:  round4(st.Mean),
				Std:   round4(st.Std),
				Count: st.Count,
			},
			Interpretation: reading(name, st),
		})
	}
	if len(out.Anomalies) > MaxAnomalies {
		out.Anomalies = out.Anomalies[:MaxAnomalies]
	}
	out.Summary = "No data in range."
	if len(summary) > 0 {
		out.Summary = strings.Join(summary, "; ")
	}
	return out
}

// describe uses the sample standard deviation; a single value has none.
func describe(values []float64) CurveStats {
	st := CurveStats{Count: len(values), Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	if len(values) == 1 {
		st.Mean = values[0]
		return st
	}
	st.Mean, st.Std = stat.MeanStdDev(values, nil)
	return st
}

func reading(name string, st CurveStats) string {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "GR"):
		switch {
		case st.Mean > 100:
			return "High gamma ray suggests shale-dominated interval."
		case st.Mean < 50:
			return "Low gamma ray suggests clean sand or limestone."
		}
		return "Moderate gamma ray indicates mixed lithology."
	case strings.Contains(upper, "RHOB"), strings.Contains(upper, "DEN"):
		switch {
		case st.Mean < 2.0:
			return "Low density may indicate gas or high porosity."
		case st.Mean > 2.6:
			return "High density suggests dense minerals or tight formation."
		}
		return "Density within typical reservoir range."
	case strings.Contains(upper, "NPHI"), strings.Contains(upper, "PHIT"):
		if st.Mean > 0.25 {
			return "High porosity reading."
		}
		return "Porosity in typical range."
	}
	return fmt.Sprintf("Mean %.2f with std %.2f; %d data points.", st.Mean, st.Std, st.Count)
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

package client

import "time"

// File statuses accepted by the server.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusDeleted  = "deleted"
)

// FileRecord is the client projection of an uploaded file.
type FileRecord struct {
	ID          int64     `json:"id"`
	WellID      int64     `json:"well_id"`
	WellName    string    `json:"well_name"`
	FileName    string    `json:"file_name"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Status      string    `json:"status"`
	IsImportant bool      `json:"is_important"`
	Processed   bool      `json:"processed"`
}

// Filter narrows ListFiles. An empty Status lists active and archived files.
type Filter struct {
	Status        string
	ImportantOnly bool
	Limit         int
}

// FilePatch is a partial update; nil fields are left unchanged.
type FilePatch struct {
	Status      *string `json:"status,omitempty"`
	IsImportant *bool   `json:"is_important,omitempty"`
}

// ProcessStatus is the reply to StartProcessing.
type ProcessStatus struct {
	FileID           int64 `json:"file_id"`
	Started          bool  `json:"started"`
	AlreadyProcessed bool  `json:"already_processed"`
}

// UploadItem is the outcome for one uploaded file.
type UploadItem struct {
	File            *FileRecord `json:"file,omitempty"`
	FileName        string      `json:"file_name,omitempty"`
	Error           string      `json:"error,omitempty"`
	ProcessingError string      `json:"processing_error,omitempty"`
}

// UploadResult lists the outcome of every uploaded file.
type UploadResult struct {
	Uploads []UploadItem `json:"uploads"`
	Count   int          `json:"count"`
}

// Well is a well known to the server.
type Well struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DepthRange is the depth span of a well's curves.
type DepthRange struct {
	Min float64 `json:"depth_min"`
	Max float64 `json:"depth_max"`
}

// CurveQuery selects named curves of a well within a depth window.
type CurveQuery struct {
	CurveNames []string `json:"curve_names"`
	DepthMin   float64  `json:"depth_min"`
	DepthMax   float64  `json:"depth_max"`
}

// Series is depth-aligned curve data; nil marks a missing sample.
type Series struct {
	WellID int64                 `json:"well_id"`
	Depth  []float64             `json:"depth"`
	Curves map[string][]*float64 `json:"curves"`
}

// Anomaly is a sample more than two standard deviations from its curve mean.
type Anomaly struct {
	Depth     float64 `json:"depth"`
	CurveName string  `json:"curve_name"`
	Value     float64 `json:"value"`
	Mean      float64 `json:"mean"`
	Deviation string  `json:"deviation"`
}

// Insight is the statistics and reading of one curve.
type Insight struct {
	Curve      string `json:"curve"`
	Statistics struct {
		Min   float64 `json:"min"`
		Max   float64 `json:"max"`
		Mean  float64 `json:"mean"`
		Std   float64 `json:"std"`
		Count int     `json:"count"`
	} `json:"statistics"`
	Interpretation string `json:"interpretation"`
}

// Interpretation is the server's analysis of a curve window.
type Interpretation struct {
	Summary   string    `json:"summary"`
	Anomalies []Anomaly `json:"anomalies"`
	Insights  []Insight `json:"insights"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

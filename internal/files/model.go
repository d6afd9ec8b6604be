package files

import "time"

// Status is the lifecycle state of an uploaded file.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusDeleted:
		return true
	default:
		return false
	}
}

// File is an uploaded LAS file and its processing state.
type File struct {
	ID          int64
	WellID      int64
	WellName    string
	StorageKey  string
	FileName    string
	UploadedAt  time.Time
	Status      Status
	IsImportant bool
	Processed   bool
}

// Filter narrows List. An empty Status means active and archived.
type Filter struct {
	Status        Status
	ImportantOnly bool
	Limit         int
}

// Patch carries optional field updates. Nil fields are left unchanged.
type Patch struct {
	Status      *Status
	IsImportant *bool
	WellID      *int64
	Processed   *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.IsImportant == nil && p.WellID == nil && p.Processed == nil
}

func (p Patch) apply(f *File) {
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.IsImportant != nil {
		f.IsImportant = *p.IsImportant
	}
	if p.WellID != nil {
		f.WellID = *p.WellID
	}
	if p.Processed != nil {
		f.Processed = *p.Processed
	}
}

// DefaultListLimit caps list responses.
const DefaultListLimit = 50

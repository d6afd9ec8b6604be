package files

import "time"

// FileResponse is the outward-facing representation of a file.
type FileResponse struct {
	ID          int64     `json:"id"`
	WellID      int64     `json:"well_id"`
	WellName    string    `json:"well_name"`
	FileName    string    `json:"file_name"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Status      Status    `json:"status"`
	IsImportant bool      `json:"is_important"`
	Processed   bool      `json:"processed"`
}

// UploadItem is one entry of an upload response.
type UploadItem struct {
	File            *FileResponse `json:"file,omitempty"`
	FileName        string        `json:"file_name,omitempty"`
	Error           string        `json:"error,omitempty"`
	ProcessingError string        `json:"processing_error,omitempty"`
}

// UploadResponse wraps all upload results.
type UploadResponse struct {
	Uploads []UploadItem `json:"uploads"`
	Count   int          `json:"count"`
}

type patchRequest struct {
	Status      *Status `json:"status"`
	IsImportant *bool   `json:"is_important"`
}

type bulkPatchRequest struct {
	FileIDs     []int64 `json:"file_ids"`
	Status      *Status `json:"status"`
	IsImportant *bool   `json:"is_important"`
}

type bulkDeleteRequest struct {
	FileIDs []int64 `json:"file_ids"`
}

func toResponse(f File) FileResponse {
	return FileResponse{
		ID:          f.ID,
		WellID:      f.WellID,
		WellName:    f.WellName,
		FileName:    f.FileName,
		UploadedAt:  f.UploadedAt,
		Status:      f.Status,
		IsImportant: f.IsImportant,
		Processed:   f.Processed,
	}
}

func toUploadResponse(results []UploadResult) UploadResponse {
	items := make([]UploadItem, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			items = append(items, UploadItem{FileName: r.File.FileName, Error: r.Err.Error()})
			continue
		}
		resp := toResponse(r.File)
		item := UploadItem{File: &resp}
		if r.ProcessErr != nil {
			item.ProcessingError = r.ProcessErr.Error()
		}
		items = append(items, item)
	}
	return UploadResponse{Uploads: items, Count: len(items)}
}

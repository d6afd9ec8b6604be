package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"lasdesk/internal/events"
	"lasdesk/internal/las"
	"lasdesk/internal/shared/storage/object"
	"lasdesk/internal/shared/telemetry"
	"lasdesk/internal/shared/util"
	"lasdesk/internal/wells"
)

const unknownWellName = "Unknown"

// Processor starts the asynchronous parsing job for a file.
type Processor interface {
	Enqueue(ctx context.Context, fileID int64, requestID string) error
}

// Service contains business logic for uploaded files.
type Service struct {
	Repo      Repo
	Wells     *wells.Service
	Store     object.ObjectStore
	Processor Processor
	Events    events.Publisher
	Now       func() time.Time
}

// UploadInput is one file from a multipart upload.
type UploadInput struct {
	Name string
	Body io.Reader
}

// UploadResult reports the outcome for one uploaded file.
type UploadResult struct {
	File       File
	Well       wells.Well
	Err        error
	ProcessErr error
}

// ProcessResult reports whether a processing job was started.
type ProcessResult struct {
	FileID           int64
	AlreadyProcessed bool
}

// Upload stores every LAS file in inputs. Files with another extension are
// skipped; per-file failures are reported in the results.
func (s *Service) Upload(ctx context.Context, inputs []UploadInput, process bool) ([]UploadResult, error) {
	var results []UploadResult
	for _, in := range inputs {
		if strings.TrimSpace(in.Name) == "" || !util.IsLASFile(in.Name) {
			continue
		}
		res := s.uploadOne(ctx, in)
		if res.Err == nil && process {
			if _, err := s.Process(ctx, res.File.ID); err != nil {
				res.ProcessErr = err
			}
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		return nil, ErrNoValidFiles
	}
	return results, nil
}

func (s *Service) uploadOne(ctx context.Context, in UploadInput) UploadResult {
	name, err := util.SanitizeFileName(in.Name)
	if err != nil {
		return UploadResult{File: File{FileName: in.Name}, Err: fmt.Errorf("%w: %v", ErrInvalidInput, err)}
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return UploadResult{File: File{FileName: name}, Err: fmt.Errorf("read upload: %w", err)}
	}

	wellName := wells.UnprocessedName
	if header, err := las.ParseHeader(bytes.NewReader(data)); err == nil {
		wellName = header.WellName()
	}
	well, _, err := s.Wells.FindOrCreate(ctx, wellName)
	if err != nil {
		return UploadResult{File: File{FileName: name}, Err: fmt.Errorf("resolve well: %w", err)}
	}

	stem, _ := splitName(name)
	taken, err := s.Repo.NamesWithPrefix(ctx, stem)
	if err != nil {
		return UploadResult{File: File{FileName: name}, Err: fmt.Errorf("list names: %w", err)}
	}
	display := uniqueName(name, taken)

	key := fmt.Sprintf("wells/%d/%s-%s", well.ID, uuid.NewString(), display)
	if _, err := s.Store.Save(ctx, key, bytes.NewReader(data)); err != nil {
		return UploadResult{File: File{FileName: display}, Err: fmt.Errorf("store upload: %w", err)}
	}

	f, err := s.Repo.Create(ctx, File{
		WellID:     well.ID,
		StorageKey: key,
		FileName:   display,
		UploadedAt: s.now(),
		Status:     StatusActive,
	})
	if err != nil {
		_ = s.Store.Delete(ctx, key)
		return UploadResult{File: File{FileName: display}, Err: fmt.Errorf("create file: %w", err)}
	}
	f.WellName = well.Name
	telemetry.Info("files.uploaded", map[string]any{
		"request_id": RequestIDFromContext(ctx),
		"file_id":    f.ID,
		"well_id":    well.ID,
		"file_name":  display,
		"size_bytes": len(data),
	})
	return UploadResult{File: f, Well: well}
}

// List returns files matching filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]File, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}
	out, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.attachWellNames(ctx, out)
	return out, nil
}

// Get returns a single file.
func (s *Service) Get(ctx context.Context, id int64) (File, error) {
	f, err := s.Repo.Get(ctx, id)
	if err != nil {
		return File{}, err
	}
	s.attachWellName(ctx, &f)
	return f, nil
}

// Open returns the file record and its raw bytes.
func (s *Service) Open(ctx context.Context, id int64) (File, io.ReadCloser, error) {
	f, err := s.Repo.Get(ctx, id)
	if err != nil {
		return File{}, nil, err
	}
	rc, err := s.Store.Open(ctx, f.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return File{}, nil, ErrNotFound
		}
		return File{}, nil, err
	}
	return f, rc, nil
}

// Update changes status and/or importance of one file.
func (s *Service) Update(ctx context.Context, id int64, status *Status, important *bool) (File, error) {
	if status != nil && !status.Valid() {
		return File{}, fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}
	f, err := s.Repo.Update(ctx, id, Patch{Status: status, IsImportant: important})
	if err != nil {
		return File{}, err
	}
	s.attachWellName(ctx, &f)
	return f, nil
}

// BulkUpdate changes status and/or importance of several files.
func (s *Service) BulkUpdate(ctx context.Context, ids []int64, status *Status, important *bool) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: file_ids required", ErrInvalidInput)
	}
	if status != nil && !status.Valid() {
		return 0, fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}
	if status == nil && important == nil {
		return 0, nil
	}
	return s.Repo.BulkUpdate(ctx, ids, Patch{Status: status, IsImportant: important})
}

// DeletePermanent removes the stored object and the row. A well left with
// no files is removed together with its curves.
func (s *Service) DeletePermanent(ctx context.Context, id int64) error {
	f, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, f.StorageKey); err != nil && !errors.Is(err, object.ErrNotFound) {
		return fmt.Errorf("delete object: %w", err)
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	remaining, err := s.Repo.CountByWell(ctx, f.WellID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := s.Wells.Remove(ctx, f.WellID); err != nil {
			return fmt.Errorf("remove well: %w", err)
		}
		telemetry.Info("files.well_removed", map[string]any{"file_id": id, "well_id": f.WellID})
	}
	return nil
}

// BulkDeletePermanent deletes every listed file and returns how many existed.
func (s *Service) BulkDeletePermanent(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: file_ids required", ErrInvalidInput)
	}
	deleted := 0
	for _, id := range ids {
		if err := s.DeletePermanent(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Process starts the parsing job for a file unless it is already processed.
func (s *Service) Process(ctx context.Context, id int64) (ProcessResult, error) {
	f, err := s.Repo.Get(ctx, id)
	if err != nil {
		return ProcessResult{}, err
	}
	if f.Processed {
		return ProcessResult{FileID: id, AlreadyProcessed: true}, nil
	}
	if s.Processor == nil {
		return ProcessResult{}, errors.New("processor not configured")
	}
	if err := s.Processor.Enqueue(ctx, id, RequestIDFromContext(ctx)); err != nil {
		if !errors.Is(err, ErrAlreadyProcessing) {
			s.publishFailure(ctx, id, err)
		}
		return ProcessResult{}, err
	}
	return ProcessResult{FileID: id}, nil
}

func (s *Service) publishFailure(ctx context.Context, id int64, cause error) {
	if s.Events == nil {
		return
	}
	ev := events.ProcessLog{FileID: id, Message: cause.Error(), Step: events.StepError}
	if err := s.Events.Publish(ctx, ev); err != nil {
		telemetry.Warn("files.publish_failed", map[string]any{"file_id": id, "error": err.Error()})
	}
}

func (s *Service) attachWellNames(ctx context.Context, list []File) {
	names := make(map[int64]string)
	for i := range list {
		name, ok := names[list[i].WellID]
		if !ok {
			name = s.wellName(ctx, list[i].WellID)
			names[list[i].WellID] = name
		}
		list[i].WellName = name
	}
}

func (s *Service) attachWellName(ctx context.Context, f *File) {
	f.WellName = s.wellName(ctx, f.WellID)
}

func (s *Service) wellName(ctx context.Context, wellID int64) string {
	if s.Wells == nil {
		return unknownWellName
	}
	w, err := s.Wells.Get(ctx, wellID)
	if err != nil {
		return unknownWellName
	}
	return w.Name
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

package files

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lasdesk/internal/shared/server/middleware"
	"lasdesk/internal/shared/server/respond"
	"lasdesk/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc         *Service
	MaxUploadMB int
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Handler{Svc: svc, MaxUploadMB: maxUploadMB}
}

// RegisterRoutes attaches file routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/files/upload", h.upload)
	rg.GET("/files", h.list)
	rg.PATCH("/files/bulk", h.bulkUpdate)
	rg.POST("/files/bulk-delete", h.bulkDelete)
	rg.GET("/files/:id", h.get)
	rg.GET("/files/:id/download", h.download)
	rg.PATCH("/files/:id", h.update)
	rg.DELETE("/files/:id", h.deletePermanent)
	rg.POST("/files/:id/process", h.process)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.MaxUploadMB)<<20)

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "No file part in request", nil)
		return
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "No file part in request", nil)
		return
	}

	inputs := make([]UploadInput, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", gin.H{"file_name": fh.Filename})
			return
		}
		opened = append(opened, f)
		inputs = append(inputs, UploadInput{Name: fh.Filename, Body: f})
	}

	process := strings.EqualFold(c.Query("process"), "true")
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	results, err := h.Svc.Upload(ctx, inputs, process)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoValidFiles):
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "No valid LAS files to upload", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to upload files", nil)
		}
		return
	}
	respond.Created(c, toUploadResponse(results))
}

func (h *Handler) list(c *gin.Context) {
	filter := Filter{Status: Status(strings.ToLower(strings.TrimSpace(c.Query("status"))))}
	switch strings.ToLower(c.Query("important")) {
	case "1", "true", "yes":
		filter.ImportantOnly = true
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= DefaultListLimit {
			filter.Limit = parsed
		}
	}

	list, err := h.Svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, "failed to list files")
		return
	}
	resp := make([]FileResponse, 0, len(list))
	for _, f := range list {
		resp = append(resp, toResponse(f))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	f, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to load file")
		return
	}
	respond.OK(c, toResponse(f))
}

func (h *Handler) download(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	f, rc, err := h.Svc.Open(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to download file")
		return
	}
	defer rc.Close()
	if _, err := respond.Attachment(c, f.FileName, rc); err != nil {
		telemetry.Warn("files.download_interrupted", map[string]any{"file_id": id, "error": err.Error()})
	}
}

func (h *Handler) update(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	before, _ := h.Svc.Repo.Get(c.Request.Context(), id)
	f, err := h.Svc.Update(c.Request.Context(), id, req.Status, req.IsImportant)
	if err != nil {
		writeError(c, err, "failed to update file")
		return
	}
	if req.Status != nil && before.Status != "" && before.Status != f.Status {
		c.Set("statusTransition", string(before.Status)+"->"+string(f.Status))
	}
	respond.OK(c, toResponse(f))
}

func (h *Handler) deletePermanent(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	if err := h.Svc.DeletePermanent(c.Request.Context(), id); err != nil {
		writeError(c, err, "failed to delete file")
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

func (h *Handler) bulkUpdate(c *gin.Context) {
	var req bulkPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	n, err := h.Svc.BulkUpdate(c.Request.Context(), req.FileIDs, req.Status, req.IsImportant)
	if err != nil {
		writeError(c, err, "failed to update files")
		return
	}
	respond.Count(c, "updated", n)
}

func (h *Handler) bulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	n, err := h.Svc.BulkDeletePermanent(c.Request.Context(), req.FileIDs)
	if err != nil {
		writeError(c, err, "failed to delete files")
		return
	}
	respond.Count(c, "deleted", n)
}

func (h *Handler) process(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.Svc.Process(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyProcessing):
			respond.Error(c, http.StatusConflict, respond.CodeAlreadyProcessing, "File is already being processed", nil)
		default:
			writeError(c, err, "failed to start processing")
		}
		return
	}
	if res.AlreadyProcessed {
		respond.OK(c, gin.H{"file_id": id, "already_processed": true})
		return
	}
	c.Set("statusTransition", "unprocessed->processing")
	respond.Accepted(c, gin.H{"file_id": id, "started": true})
}

func fileID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid file id", nil)
		return 0, false
	}
	c.Set(middleware.FileIDKey, raw)
	return id, true
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "File not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, err.Error())
	}
}

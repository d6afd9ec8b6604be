package files

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, testDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	deps := newTestService(t)
	r := gin.New()
	NewHandler(deps.svc, 5).RegisterRoutes(r.Group("/api/v1"))
	return r, deps
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadHandlerCreatesFiles(t *testing.T) {
	r, _ := newTestRouter(t)
	body, ct := multipartBody(t, map[string]string{"well.las": sampleLAS, "readme.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload UploadResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 1 || payload.Uploads[0].File == nil || payload.Uploads[0].File.FileName != "well.las" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Uploads[0].File.WellName != "DEMO-1" || payload.Uploads[0].File.Status != StatusActive {
		t.Fatalf("unexpected file %+v", payload.Uploads[0].File)
	}
}

func TestUploadHandlerRejectsMissingOrInvalid(t *testing.T) {
	r, _ := newTestRouter(t)

	body, ct := multipartBody(t, map[string]string{"readme.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-LAS upload, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", strings.NewReader(""))
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without multipart body, got %d", resp.Code)
	}
}

func TestProcessHandlerStatuses(t *testing.T) {
	r, deps := newTestRouter(t)
	f := mustUpload(t, deps.svc, "a.las")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/files/1/process", nil))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	var started map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &started)
	if started["started"] != true || started["file_id"] != float64(f.ID) {
		t.Fatalf("unexpected body %v", started)
	}

	processed := true
	_, _ = deps.repo.Update(t.Context(), f.ID, Patch{Processed: &processed})
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/files/1/process", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"already_processed":true`) {
		t.Fatalf("expected 200 already_processed, got %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/files/77/process", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	g := mustUpload(t, deps.svc, "b.las")
	deps.processor.err = ErrAlreadyProcessing
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/files/2/process", nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for file %d, got %d", g.ID, resp.Code)
	}
}

func TestPatchAndBulkHandlers(t *testing.T) {
	r, deps := newTestRouter(t)
	mustUpload(t, deps.svc, "a.las")
	mustUpload(t, deps.svc, "b.las")
	mustUpload(t, deps.svc, "c.las")

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/files/1", strings.NewReader(`{"is_important":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"is_important":true`) {
		t.Fatalf("unexpected patch response %d %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/files/1", strings.NewReader(`{"status":"gone"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", resp.Code)
	}
	var errBody struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &errBody)
	if errBody.Error.Code != "validation_error" {
		t.Fatalf("unexpected error body %s", resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/files/bulk", strings.NewReader(`{"file_ids":[1,2,3],"status":"archived"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"updated":3`) {
		t.Fatalf("unexpected bulk response %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/files?status=active", nil))
	if strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Fatalf("expected no active files, got %s", resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/files/bulk-delete", strings.NewReader(`{"file_ids":[1,2]}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"deleted":2`) {
		t.Fatalf("unexpected bulk delete response %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/files/3", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.Code)
	}
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/files/3", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeated delete, got %d", resp.Code)
	}
}

func TestDownloadHandlerStreamsBytes(t *testing.T) {
	r, deps := newTestRouter(t)
	mustUpload(t, deps.svc, "a.las")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/files/1/download", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.String() != sampleLAS {
		t.Fatalf("unexpected body")
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "a.las") {
		t.Fatalf("missing filename in disposition")
	}
}

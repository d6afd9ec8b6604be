// Package client is the REST client for the lasdesk API.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"lasdesk/internal/shared/telemetry"
)

const apiPrefix = "/api/v1"

// Client talks to the lasdesk API.
type Client struct {
	http    *resty.Client
	baseURL string
	logger  telemetry.Logger
}

// UploadFile is one file passed to Upload.
type UploadFile struct {
	Name string
	Body io.Reader
}

// New constructs a Client for baseURL, e.g. http://localhost:1729.
func New(baseURL string, timeout time.Duration, logger telemetry.Logger) *Client {
	if logger == nil {
		logger = telemetry.Nop{}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	rc := resty.New().
		SetBaseURL(baseURL+apiPrefix).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second)
	rc.AddRetryCondition(retryCondition)
	return &Client{http: rc, baseURL: baseURL, logger: logger}
}

// retryCondition retries reads only; mutations are never repeated.
func retryCondition(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests
}

// EventsURL is the server-sent events endpoint.
func (c *Client) EventsURL() string {
	return c.baseURL + apiPrefix + "/events"
}

// StreamHTTPClient shares the client's transport without its timeout, for
// long-lived streams.
func (c *Client) StreamHTTPClient() *http.Client {
	return &http.Client{Transport: c.http.GetClient().Transport}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx).SetError(&errorEnvelope{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	return c.check(method, path, resp, err)
}

func (c *Client) check(method, path string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Debug("client.request_failed", map[string]any{"method": method, "path": path, "error": err.Error()})
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	if env, ok := resp.Error().(*errorEnvelope); ok && env.Error.Message != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	c.logger.Debug("client.request_rejected", map[string]any{"method": method, "path": path, "status": apiErr.Status, "code": apiErr.Code})
	return apiErr
}

// ListFiles returns files matching filter, newest first.
func (c *Client) ListFiles(ctx context.Context, filter Filter) ([]FileRecord, error) {
	req := c.http.R().SetContext(ctx).SetError(&errorEnvelope{})
	if filter.Status != "" {
		req.SetQueryParam("status", filter.Status)
	}
	if filter.ImportantOnly {
		req.SetQueryParam("important", "1")
	}
	if filter.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(filter.Limit))
	}
	var out []FileRecord
	req.SetResult(&out)
	resp, err := req.Get("/files")
	if err := c.check(http.MethodGet, "/files", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFile returns one file.
func (c *Client) GetFile(ctx context.Context, id int64) (FileRecord, error) {
	var out FileRecord
	err := c.do(ctx, http.MethodGet, filePath(id), nil, &out)
	return out, err
}

// Upload sends files in one multipart request, optionally starting
// processing for each.
func (c *Client) Upload(ctx context.Context, files []UploadFile, process bool) (UploadResult, error) {
	req := c.http.R().SetContext(ctx).SetError(&errorEnvelope{})
	for _, f := range files {
		req.SetFileReader("file", f.Name, f.Body)
	}
	if process {
		req.SetQueryParam("process", "true")
	}
	var out UploadResult
	req.SetResult(&out)
	resp, err := req.Post("/files/upload")
	if err := c.check(http.MethodPost, "/files/upload", resp, err); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}

// StartProcessing asks the server to parse the file. Already processed
// files are reported, not re-run.
func (c *Client) StartProcessing(ctx context.Context, id int64) (ProcessStatus, error) {
	var out ProcessStatus
	err := c.do(ctx, http.MethodPost, filePath(id)+"/process", nil, &out)
	return out, err
}

// PatchFile updates status and/or importance.
func (c *Client) PatchFile(ctx context.Context, id int64, patch FilePatch) (FileRecord, error) {
	var out FileRecord
	err := c.do(ctx, http.MethodPatch, filePath(id), patch, &out)
	return out, err
}

// BulkPatch applies patch to every id and returns how many changed.
func (c *Client) BulkPatch(ctx context.Context, ids []int64, patch FilePatch) (int, error) {
	body := struct {
		FileIDs []int64 `json:"file_ids"`
		FilePatch
	}{FileIDs: ids, FilePatch: patch}
	var out struct {
		Updated int `json:"updated"`
	}
	err := c.do(ctx, http.MethodPatch, "/files/bulk", body, &out)
	return out.Updated, err
}

// DeletePermanent removes the file and its stored bytes.
func (c *Client) DeletePermanent(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, filePath(id), nil, nil)
}

// BulkDeletePermanent removes every id and returns how many were deleted.
func (c *Client) BulkDeletePermanent(ctx context.Context, ids []int64) (int, error) {
	body := struct {
		FileIDs []int64 `json:"file_ids"`
	}{FileIDs: ids}
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := c.do(ctx, http.MethodPost, "/files/bulk-delete", body, &out)
	return out.Deleted, err
}

// Download copies the original file bytes into w.
func (c *Client) Download(ctx context.Context, id int64, w io.Writer) (int64, error) {
	path := filePath(id) + "/download"
	resp, err := c.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(path)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", path, err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() >= http.StatusBadRequest {
		return 0, &APIError{Status: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	}
	return io.Copy(w, body)
}

// ListWells returns every well.
func (c *Client) ListWells(ctx context.Context) ([]Well, error) {
	var out []Well
	err := c.do(ctx, http.MethodGet, "/wells", nil, &out)
	return out, err
}

// CurveNames returns the curve mnemonics stored for a well.
func (c *Client) CurveNames(ctx context.Context, wellID int64) ([]string, error) {
	var out struct {
		CurveNames []string `json:"curve_names"`
	}
	err := c.do(ctx, http.MethodGet, wellPath(wellID)+"/curves", nil, &out)
	return out.CurveNames, err
}

// DepthRange returns the depth span of a well.
func (c *Client) DepthRange(ctx context.Context, wellID int64) (DepthRange, error) {
	var out DepthRange
	err := c.do(ctx, http.MethodGet, wellPath(wellID)+"/depth-range", nil, &out)
	return out, err
}

// CurveData returns the requested curves aligned on depth.
func (c *Client) CurveData(ctx context.Context, wellID int64, q CurveQuery) (Series, error) {
	var out Series
	err := c.do(ctx, http.MethodPost, wellPath(wellID)+"/curve-data", q, &out)
	return out, err
}

// Interpret runs the statistical interpretation of a curve window.
func (c *Client) Interpret(ctx context.Context, wellID int64, q CurveQuery) (Interpretation, error) {
	var out Interpretation
	err := c.do(ctx, http.MethodPost, wellPath(wellID)+"/interpretation", q, &out)
	return out, err
}

func wellPath(id int64) string {
	return "/wells/" + strconv.FormatInt(id, 10)
}

func filePath(id int64) string {
	return "/files/" + strconv.FormatInt(id, 10)
}

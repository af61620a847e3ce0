package dirclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/dgallion1/orgmark/internal/pipeline"
)

// Import uploads a CSV or JSON employee file and returns the queued job id.
func (c *Client) Import(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/employees/import", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.roundTrip("import", req)
	if err != nil {
		return "", err
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.JobID == "" {
		return "", &ValidationError{Op: "import", Reason: "response has no job_id"}
	}
	return resp.JobID, nil
}

// ImportStatus fetches the progress of an import job.
func (c *Client) ImportStatus(ctx context.Context, jobID string) (*pipeline.JobSnapshot, error) {
	u := fmt.Sprintf("%s/api/employees/import/%s/status", c.baseURL, url.PathEscape(jobID))
	raw, err := c.do(ctx, "import status", http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var snap pipeline.JobSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &ValidationError{Op: "import status", Reason: err.Error()}
	}
	return &snap, nil
}

// Package dirclient is the HTTP client for the directory service API.
package dirclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/orgmark/internal/annotation"
	"github.com/dgallion1/orgmark/internal/directory"
	"github.com/dgallion1/orgmark/internal/hierarchy"
)

const defaultTimeout = 10 * time.Second

// Config configures a Client. BaseURL is required.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client communicates with the directory HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, httpClient: hc}, nil
}

// NetworkError is a failed request: transport error, timeout, or a
// non-success status.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is a response whose body did not have the expected
// shape.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid response: %s", e.Op, e.Reason)
}

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.StatusCode
	}
	return 0
}

// Search returns employees whose name or manager name contains term.
// The response must be an array of records with id, name and email.
func (c *Client) Search(ctx context.Context, term string) ([]directory.Employee, error) {
	u := c.baseURL + "/api/search?name=" + url.QueryEscape(term)
	raw, err := c.do(ctx, "search", http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	emps, err := directory.ValidateShape(raw)
	if err != nil {
		return nil, &ValidationError{Op: "search", Reason: err.Error()}
	}
	return emps, nil
}

// ListManagers returns every manager.
func (c *Client) ListManagers(ctx context.Context) ([]directory.Manager, error) {
	raw, err := c.do(ctx, "list managers", http.MethodGet, c.baseURL+"/api/managers", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Managers []directory.Manager `json:"managers"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ValidationError{Op: "list managers", Reason: err.Error()}
	}
	return result.Managers, nil
}

// CreateEmployee posts a new employee.
func (c *Client) CreateEmployee(ctx context.Context, in directory.EmployeeInput) (*directory.Employee, error) {
	return c.employee(ctx, "create employee", http.MethodPost, c.baseURL+"/api/employees", in)
}

// UpdateEmployee replaces an employee's fields.
func (c *Client) UpdateEmployee(ctx context.Context, id int64, in directory.EmployeeInput) (*directory.Employee, error) {
	return c.employee(ctx, "update employee", http.MethodPut, c.employeeURL(id), in)
}

// DeleteEmployee removes an employee.
func (c *Client) DeleteEmployee(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "delete employee", http.MethodDelete, c.employeeURL(id), nil)
	return err
}

// BulkDelete removes several employees in one request.
func (c *Client) BulkDelete(ctx context.Context, ids []int64) (*directory.BulkDeleteResult, error) {
	body := map[string][]int64{"employee_ids": ids}
	raw, err := c.do(ctx, "bulk delete", http.MethodDelete, c.baseURL+"/api/employees/bulk_delete", body)
	if err != nil {
		return nil, err
	}
	var res directory.BulkDeleteResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &ValidationError{Op: "bulk delete", Reason: err.Error()}
	}
	return &res, nil
}

// OrgChart returns every employee with its management path.
func (c *Client) OrgChart(ctx context.Context) ([]hierarchy.ChartEntry, error) {
	raw, err := c.do(ctx, "org chart", http.MethodGet, c.baseURL+"/org-chart", nil)
	if err != nil {
		return nil, err
	}
	var chart []hierarchy.ChartEntry
	if err := json.Unmarshal(raw, &chart); err != nil {
		return nil, &ValidationError{Op: "org chart", Reason: err.Error()}
	}
	return chart, nil
}

// GetAnnotation fetches an employee's stored annotation.
func (c *Client) GetAnnotation(ctx context.Context, id int64) (*annotation.View, error) {
	raw, err := c.do(ctx, "get annotation", http.MethodGet, c.annotationURL(id), nil)
	if err != nil {
		return nil, err
	}
	var view annotation.View
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, &ValidationError{Op: "get annotation", Reason: err.Error()}
	}
	if view.EmployeeID != id {
		return nil, &ValidationError{Op: "get annotation", Reason: fmt.Sprintf("employee_id %d, want %d", view.EmployeeID, id)}
	}
	return &view, nil
}

// SaveAnnotation replaces the employee's annotation. A record with nil
// coordinates clears it.
func (c *Client) SaveAnnotation(ctx context.Context, rec annotation.Record) (*annotation.View, error) {
	raw, err := c.do(ctx, "save annotation", http.MethodPut, c.annotationURL(rec.EmployeeID), annotation.CoordinatesOf(rec))
	if err != nil {
		return nil, err
	}
	var view annotation.View
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, &ValidationError{Op: "save annotation", Reason: err.Error()}
	}
	return &view, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) employeeURL(id int64) string {
	return fmt.Sprintf("%s/api/employees/%d", c.baseURL, id)
}

func (c *Client) annotationURL(id int64) string {
	return fmt.Sprintf("%s/employee/%d/annotation", c.baseURL, id)
}

func (c *Client) employee(ctx context.Context, op, method, u string, body any) (*directory.Employee, error) {
	raw, err := c.do(ctx, op, method, u, body)
	if err != nil {
		return nil, err
	}
	var emp directory.Employee
	if err := json.Unmarshal(raw, &emp); err != nil {
		return nil, &ValidationError{Op: op, Reason: err.Error()}
	}
	if emp.ID == 0 || emp.Name == "" {
		return nil, &ValidationError{Op: op, Reason: "employee record missing id or name"}
	}
	return &emp, nil
}

// do sends a JSON request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, u string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.roundTrip(op, req)
}

// roundTrip sends req and returns the body of a 2xx response.
func (c *Client) roundTrip(op string, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(respBody))}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	return raw, nil
}

// errorMessage extracts the "error" field of an API error body, falling
// back to the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "empty response"
}

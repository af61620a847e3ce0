// Package directory holds the employee directory domain types and the
// Store contract implemented by the in-memory and PostgreSQL backends.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/orgmark/internal/annotation"
)

var (
	ErrNotFound        = errors.New("employee not found")
	ErrManagerNotFound = errors.New("manager not found")
	ErrConflict        = errors.New("email already in use")
	ErrUnavailable     = errors.New("store unavailable")
	ErrInvalid         = errors.New("invalid input")
)

// DefaultCountry is applied when an input leaves country blank.
const DefaultCountry = "India"

// Employee is a directory record as served by search.
type Employee struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Country     string   `json:"country"`
	ManagerID   *int64   `json:"manager_id"`
	ManagerName string   `json:"manager_name,omitempty"`
	X0          *float64 `json:"x0"`
	X1          *float64 `json:"x1"`
	Y0          *float64 `json:"y0"`
	Y1          *float64 `json:"y1"`
	Page        *int     `json:"page"`
	Snippet     *string  `json:"snippet"`
}

// Annotation returns the employee's stored annotation record.
func (e Employee) Annotation() annotation.Record {
	return annotation.Record{
		EmployeeID: e.ID,
		Page:       e.Page,
		X0:         e.X0,
		Y0:         e.Y0,
		X1:         e.X1,
		Y1:         e.Y1,
		Snippet:    e.Snippet,
	}
}

// SetAnnotation copies rec's coordinates, page and snippet onto e.
func (e *Employee) SetAnnotation(rec annotation.Record) {
	e.X0, e.X1, e.Y0, e.Y1 = rec.X0, rec.X1, rec.Y0, rec.Y1
	e.Page = rec.Page
	e.Snippet = rec.Snippet
}

// Manager heads a group of employees.
type Manager struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// EmployeeInput is the body of create and update requests.
type EmployeeInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ManagerID *int64 `json:"manager_id"`
	Country   string `json:"country"`
}

// Validate trims fields, applies defaults, and rejects missing values.
func (in *EmployeeInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	in.Country = strings.TrimSpace(in.Country)
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case in.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalid)
	case !strings.Contains(in.Email, "@"):
		return fmt.Errorf("%w: email %q is not valid", ErrInvalid, in.Email)
	case in.Role == "":
		return fmt.Errorf("%w: role is required", ErrInvalid)
	}
	if in.Country == "" {
		in.Country = DefaultCountry
	}
	return nil
}

// ManagerInput is the body of a manager update.
type ManagerInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Validate rejects a manager update with missing fields.
func (in *ManagerInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	if in.Name == "" || in.Email == "" || in.Role == "" {
		return fmt.Errorf("%w: name, email and role are required", ErrInvalid)
	}
	return nil
}

// Store persists employees, managers and their annotations.
type Store interface {
	// Search matches term case-insensitively against employee and
	// manager names. An empty term returns every employee.
	Search(ctx context.Context, term string) ([]Employee, error)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	CreateEmployee(ctx context.Context, in EmployeeInput) (*Employee, error)
	UpdateEmployee(ctx context.Context, id int64, in EmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, id int64) (*Employee, error)

	ListManagers(ctx context.Context) ([]Manager, error)
	GetManager(ctx context.Context, id int64) (*Manager, error)
	UpdateManager(ctx context.Context, id int64, in ManagerInput) (*Manager, error)
	// EnsureManager returns the manager with the given name, creating it
	// when absent.
	EnsureManager(ctx context.Context, name string) (*Manager, error)

	// SaveAnnotation overwrites the employee's annotation. A record with
	// nil coordinates clears it.
	SaveAnnotation(ctx context.Context, rec annotation.Record) (*Employee, error)

	Close()
}

// BulkDeleteResult reports which ids of a bulk delete were removed and
// which did not exist.
type BulkDeleteResult struct {
	Deleted  []int64 `json:"deleted"`
	NotFound []int64 `json:"not_found"`
}

// ManagerEmail is the address given to managers created implicitly.
func ManagerEmail(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ".")) + "@example.com"
}

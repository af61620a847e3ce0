// Package annotation converts between drawn rectangles and the
// coordinate records persisted for each employee.
package annotation

import "github.com/dgallion1/orgmark/internal/geometry"

// Record is the persisted form of an employee's annotation. Any nil
// coordinate means the employee has no annotation. Callers outside this
// package do not guarantee x0<x1 or y0<y1.
type Record struct {
	EmployeeID int64    `json:"employee_id"`
	Page       *int     `json:"page"`
	X0         *float64 `json:"x0"`
	Y0         *float64 `json:"y0"`
	X1         *float64 `json:"x1"`
	Y1         *float64 `json:"y1"`
	Snippet    *string  `json:"snippet"`
}

// ToRecord encodes rect on page for an employee. An empty snippet is
// stored as null.
func ToRecord(rect geometry.Rect, page int, employeeID int64, snippet string) Record {
	rec := Record{
		EmployeeID: employeeID,
		Page:       &page,
		X0:         ptr(rect.Left),
		Y0:         ptr(rect.Top),
		X1:         ptr(rect.Left + rect.Width),
		Y1:         ptr(rect.Top + rect.Height),
	}
	if snippet != "" {
		rec.Snippet = &snippet
	}
	return rec
}

// FromRecord rebuilds a renderable rectangle, normalizing corner order.
// It returns false when the record carries no annotation.
func FromRecord(rec Record) (geometry.Rect, bool) {
	if !HasAnnotation(rec) {
		return geometry.Rect{}, false
	}
	return geometry.Normalize(*rec.X0, *rec.X1, *rec.Y0, *rec.Y1), true
}

// HasAnnotation reports whether all four coordinates are present.
func HasAnnotation(rec Record) bool {
	return rec.X0 != nil && rec.Y0 != nil && rec.X1 != nil && rec.Y1 != nil
}

// Clear returns the record that removes an employee's annotation.
func Clear(employeeID int64) Record {
	return Record{EmployeeID: employeeID}
}

// PageOrZero returns the record's page, or 0 when unset.
func (r Record) PageOrZero() int {
	if r.Page == nil {
		return 0
	}
	return *r.Page
}

// SnippetOrEmpty returns the snippet, or "" when unset.
func (r Record) SnippetOrEmpty() string {
	if r.Snippet == nil {
		return ""
	}
	return *r.Snippet
}

func ptr[T any](v T) *T { return &v }

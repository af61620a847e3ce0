package directory

import (
	"fmt"
	"strings"
)

// ImportRow is one employee of a bulk import. Path lists the management
// chain from the direct manager upward.
type ImportRow struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Role    string   `json:"role"`
	Country string   `json:"country"`
	Manager string   `json:"manager"`
	Path    []string `json:"path"`
}

// ManagerName returns the row's manager, falling back to the first entry
// of Path.
func (r ImportRow) ManagerName() string {
	if m := strings.TrimSpace(r.Manager); m != "" {
		return m
	}
	for _, p := range r.Path {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	return ""
}

// Input converts the row into a create request under managerID.
func (r ImportRow) Input(managerID *int64) (EmployeeInput, error) {
	in := EmployeeInput{
		Name:      r.Name,
		Email:     r.Email,
		Role:      r.Role,
		Country:   r.Country,
		ManagerID: managerID,
	}
	if err := in.Validate(); err != nil {
		return EmployeeInput{}, fmt.Errorf("row %q: %w", r.Name, err)
	}
	return in, nil
}

package directory

import (
	"encoding/json"
	"fmt"
)

// requiredFields must be present on every record of a search response.
var requiredFields = []string{"id", "name", "email"}

// ShapeError describes a search payload that failed the shape check.
type ShapeError struct {
	Index int
	Field string
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		return "search response is not an array"
	}
	return fmt.Sprintf("record %d is missing required field %q", e.Index, e.Field)
}

// ValidateShape checks that raw is a JSON array whose records all carry
// id, name and email, then decodes it.
func ValidateShape(raw []byte) ([]Employee, error) {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &ShapeError{Index: -1}
	}
	for i, rec := range records {
		for _, f := range requiredFields {
			if _, ok := rec[f]; !ok {
				return nil, &ShapeError{Index: i, Field: f}
			}
		}
	}

	var out []Employee
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode employees: %w", err)
	}
	if out == nil {
		out = []Employee{}
	}
	return out, nil
}

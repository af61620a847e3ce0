package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/orgmark/internal/directory"
)

// csvColumns are the recognized CSV header names. name and email are
// required; the rest are optional.
var csvColumns = []string{"name", "email", "role", "manager", "country", "path"}

// ParsePayload decodes an import upload into rows. JSON is either an
// array of rows or an object with an "employees" array; anything else is
// read as CSV with a header row.
func ParsePayload(filename string, data []byte) ([]directory.ImportRow, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".json" || trimmed[0] == '[' || trimmed[0] == '{' {
		return parseJSON(trimmed)
	}
	return parseCSV(trimmed)
}

func parseJSON(data []byte) ([]directory.ImportRow, error) {
	var rows []directory.ImportRow
	if data[0] == '{' {
		var wrapped struct {
			Employees []directory.ImportRow `json:"employees"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		rows = wrapped.Employees
	} else if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("payload contains no employees")
	}
	return rows, nil
}

func parseCSV(data []byte) ([]directory.ImportRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv needs a header row and at least one employee")
	}

	// First row is headers.
	index := make(map[string]int)
	for i, h := range records[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "email"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column (known: %s)", required, strings.Join(csvColumns, ", "))
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rows := make([]directory.ImportRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := directory.ImportRow{
			Name:    cell(rec, "name"),
			Email:   cell(rec, "email"),
			Role:    cell(rec, "role"),
			Manager: cell(rec, "manager"),
			Country: cell(rec, "country"),
		}
		if p := cell(rec, "path"); p != "" {
			for _, part := range strings.Split(p, "/") {
				if part = strings.TrimSpace(part); part != "" {
					row.Path = append(row.Path, part)
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

package hierarchy

import (
	"slices"

	"github.com/dgallion1/orgmark/internal/directory"
)

// ChartEntry is an employee with its management chain. Path runs from
// the top of the chain down to the employee's own name.
type ChartEntry struct {
	directory.Employee
	Path []string `json:"path"`
}

// OrgChart attaches a management path to every record. A manager who is
// also listed as an employee continues the chain through that
// employee's own manager; a repeated name ends it.
func OrgChart(records []directory.Employee) []ChartEntry {
	byName := make(map[string]directory.Employee, len(records))
	for _, e := range records {
		if _, ok := byName[e.Name]; !ok {
			byName[e.Name] = e
		}
	}
	out := make([]ChartEntry, 0, len(records))
	for _, e := range records {
		out = append(out, ChartEntry{Employee: e, Path: chainOf(e, byName)})
	}
	return out
}

func chainOf(e directory.Employee, byName map[string]directory.Employee) []string {
	path := []string{e.Name}
	seen := map[string]bool{e.Name: true}
	m := e.ManagerName
	for m != "" && !seen[m] {
		seen[m] = true
		path = append(path, m)
		next, ok := byName[m]
		if !ok {
			break
		}
		m = next.ManagerName
	}
	slices.Reverse(path)
	return path
}

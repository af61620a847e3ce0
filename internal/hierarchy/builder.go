// Package hierarchy turns a flat employee list into the ordered
// manager-header and member rows shown by the directory grid.
package hierarchy

import (
	"sort"

	"github.com/dgallion1/orgmark/internal/directory"
)

// NoManager is the group label for employees without a manager.
const NoManager = "No Manager"

// Row is one grid row. Group headers leave Employee nil; member rows
// inline the employee's fields when encoded as JSON.
type Row struct {
	*directory.Employee
	Group         string `json:"manager_name"`
	IsGroupHeader bool   `json:"isGroupHeader"`
	EmployeeCount int    `json:"employeeCount"`
}

// Header returns a group header row.
func Header(group string, count int) Row {
	return Row{Group: group, IsGroupHeader: true, EmployeeCount: count}
}

// Member returns a member row for a copy of e.
func Member(e directory.Employee) Row {
	return Row{Employee: &e, Group: GroupOf(e)}
}

// GroupOf returns the grouping key for e.
func GroupOf(e directory.Employee) string {
	if e.ManagerName == "" {
		return NoManager
	}
	return e.ManagerName
}

// hiddenGroup reports whether a group key is never shown.
func hiddenGroup(k string) bool { return k == "" || k == "null" }

// Build groups records by manager. Groups are ordered by name; members
// of expanded groups follow their header sorted by name. Groups named
// "" or "null" are dropped.
func Build(records []directory.Employee, expanded *Expansion) []Row {
	groups := make(map[string][]directory.Employee)
	for _, e := range records {
		key := GroupOf(e)
		groups[key] = append(groups[key], e)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		if hiddenGroup(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		members := groups[k]
		rows = append(rows, Header(k, len(members)))
		if !expanded.Has(k) {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool { return members[i].Name < members[j].Name })
		for _, m := range members {
			rows = append(rows, Member(m))
		}
	}
	return rows
}

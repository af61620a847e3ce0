package hierarchy

import "github.com/dgallion1/orgmark/internal/directory"

// Patch carries the member fields editable in place.
type Patch struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// InsertMember adds m as the last row of its group's block and bumps the
// header count. Without a matching header a new header is appended
// first. Members of groups Build drops are not inserted. The input
// slice is not modified.
func InsertMember(rows []Row, m directory.Employee) []Row {
	group := GroupOf(m)
	out := make([]Row, 0, len(rows)+2)
	out = append(out, rows...)
	if hiddenGroup(group) {
		return out
	}

	h := headerIndex(out, group)
	if h < 0 {
		return append(out, Header(group, 1), Member(m))
	}
	out[h].EmployeeCount++

	end := blockEnd(out, h)
	out = append(out, Row{})
	copy(out[end+1:], out[end:])
	out[end] = Member(m)
	return out
}

// UpdateMember applies patch to the member row with the given id
// without moving it. It reports whether the row was found.
func UpdateMember(rows []Row, id int64, patch Patch) ([]Row, bool) {
	i := memberIndex(rows, id)
	if i < 0 {
		return rows, false
	}
	out := append([]Row(nil), rows...)
	emp := *out[i].Employee
	emp.Name = patch.Name
	emp.Email = patch.Email
	emp.Role = patch.Role
	out[i].Employee = &emp
	return out, true
}

// RemoveMember deletes the member row with the given id and decrements
// its header count. Headers left empty stay in place.
func RemoveMember(rows []Row, id int64) ([]Row, bool) {
	i := memberIndex(rows, id)
	if i < 0 {
		return rows, false
	}
	out := make([]Row, 0, len(rows)-1)
	out = append(out, rows[:i]...)
	out = append(out, rows[i+1:]...)
	if h := owningHeader(out, i); h >= 0 && out[h].EmployeeCount > 0 {
		out[h].EmployeeCount--
	}
	return out, true
}

// ReplaceMember swaps in a copy of e for the member row with the same
// id, keeping its position.
func ReplaceMember(rows []Row, e directory.Employee) ([]Row, bool) {
	i := memberIndex(rows, e.ID)
	if i < 0 {
		return rows, false
	}
	out := append([]Row(nil), rows...)
	out[i].Employee = &e
	return out, true
}

// AdjustCount adds delta to the count on group's header without touching
// member rows, for changes inside a collapsed group. Counts stop at zero
// and the header stays. It reports whether the header was found.
func AdjustCount(rows []Row, group string, delta int) ([]Row, bool) {
	h := headerIndex(rows, group)
	if h < 0 {
		return rows, false
	}
	out := append([]Row(nil), rows...)
	out[h].EmployeeCount = max(out[h].EmployeeCount+delta, 0)
	return out, true
}

// HasGroup reports whether rows carry a header for group.
func HasGroup(rows []Row, group string) bool {
	return headerIndex(rows, group) >= 0
}

// Recount sets every header's count to the number of member rows in
// its block. Use it on rows whose counts may have drifted.
func Recount(rows []Row) []Row {
	out := append([]Row(nil), rows...)
	for i := range out {
		if out[i].IsGroupHeader {
			out[i].EmployeeCount = blockEnd(out, i) - i - 1
		}
	}
	return out
}

func headerIndex(rows []Row, group string) int {
	for i, r := range rows {
		if r.IsGroupHeader && r.Group == group {
			return i
		}
	}
	return -1
}

// blockEnd returns the index of the first header after h, or len(rows).
func blockEnd(rows []Row, h int) int {
	j := h + 1
	for j < len(rows) && !rows[j].IsGroupHeader {
		j++
	}
	return j
}

func memberIndex(rows []Row, id int64) int {
	for i, r := range rows {
		if !r.IsGroupHeader && r.Employee != nil && r.ID == id {
			return i
		}
	}
	return -1
}

// owningHeader returns the nearest header at or before position i.
func owningHeader(rows []Row, i int) int {
	for j := min(i, len(rows)) - 1; j >= 0; j-- {
		if rows[j].IsGroupHeader {
			return j
		}
	}
	return -1
}

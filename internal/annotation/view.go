package annotation

// Coordinates is the wire body of annotation writes and the coordinate
// part of a View. Null fields clear the stored values.
type Coordinates struct {
	X0      *float64 `json:"x0"`
	X1      *float64 `json:"x1"`
	Y0      *float64 `json:"y0"`
	Y1      *float64 `json:"y1"`
	Page    *int     `json:"page"`
	Snippet *string  `json:"snippet,omitempty"`
}

// Complete reports whether every coordinate and the page are set.
func (c Coordinates) Complete() bool {
	return c.X0 != nil && c.X1 != nil && c.Y0 != nil && c.Y1 != nil && c.Page != nil
}

// Record attaches the coordinates to an employee.
func (c Coordinates) Record(employeeID int64) Record {
	return Record{
		EmployeeID: employeeID,
		Page:       c.Page,
		X0:         c.X0,
		Y0:         c.Y0,
		X1:         c.X1,
		Y1:         c.Y1,
		Snippet:    c.Snippet,
	}
}

// CoordinatesOf strips the employee id from rec.
func CoordinatesOf(rec Record) Coordinates {
	return Coordinates{X0: rec.X0, X1: rec.X1, Y0: rec.Y0, Y1: rec.Y1, Page: rec.Page, Snippet: rec.Snippet}
}

// View is the annotation lookup response for one employee.
type View struct {
	EmployeeID    int64        `json:"employee_id"`
	EmployeeName  string       `json:"employee_name"`
	HasAnnotation bool         `json:"has_annotation"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
}

// NewView reports an annotation only when the record carries a page as
// well as all four coordinates.
func NewView(employeeName string, rec Record) View {
	v := View{EmployeeID: rec.EmployeeID, EmployeeName: employeeName}
	if HasAnnotation(rec) && rec.Page != nil {
		c := CoordinatesOf(rec)
		v.HasAnnotation = true
		v.Coordinates = &c
	}
	return v
}

// Record returns the viewed annotation, or a cleared record when the
// view has none.
func (v View) Record() Record {
	if !v.HasAnnotation || v.Coordinates == nil {
		return Clear(v.EmployeeID)
	}
	return v.Coordinates.Record(v.EmployeeID)
}

// Package workspace owns the client-side state of the annotation tool:
// the directory rows with their expansion state, the selected employee,
// the rectangle drawn on the document, and the status line. Views call
// the Coordinator directly instead of broadcasting to each other.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/orgmark/internal/annotation"
	"github.com/dgallion1/orgmark/internal/directory"
	"github.com/dgallion1/orgmark/internal/geometry"
	"github.com/dgallion1/orgmark/internal/hierarchy"
	"github.com/dgallion1/orgmark/internal/pagetext"
	"github.com/dgallion1/orgmark/internal/textmatch"
)

// Directory is the remote directory the coordinator reads and writes.
// *dirclient.Client implements it.
type Directory interface {
	Search(ctx context.Context, term string) ([]directory.Employee, error)
	ListManagers(ctx context.Context) ([]directory.Manager, error)
	CreateEmployee(ctx context.Context, in directory.EmployeeInput) (*directory.Employee, error)
	UpdateEmployee(ctx context.Context, id int64, in directory.EmployeeInput) (*directory.Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
	GetAnnotation(ctx context.Context, id int64) (*annotation.View, error)
	SaveAnnotation(ctx context.Context, rec annotation.Record) (*annotation.View, error)
}

// Options tunes timing and the initial view.
type Options struct {
	Debounce        time.Duration
	RequestTimeout  time.Duration
	StatusTTL       time.Duration
	DefaultExpanded []string
	// OnChange, when set, is called after rows, selection, rectangle or
	// status change. It runs without the coordinator's lock held.
	OnChange func()
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 300 * time.Millisecond
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.StatusTTL <= 0 {
		o.StatusTTL = 3 * time.Second
	}
	return o
}

// Region is a rectangle on a 0-based page.
type Region struct {
	Page int           `json:"page"`
	Rect geometry.Rect `json:"rect"`
}

// Coordinator serializes all state changes behind one mutex. Network
// calls run without the lock; their results are applied afterwards,
// last write wins.
type Coordinator struct {
	dir   Directory
	pages pagetext.Source
	opts  Options
	log   *slog.Logger
	now   func() time.Time

	mu          sync.Mutex
	records     []directory.Employee
	rows        []hierarchy.Row
	expanded    *hierarchy.Expansion
	term        string
	issued      uint64
	debounce    *time.Timer
	selected    *directory.Employee
	active      *Region
	annotations map[int64]annotation.Record
	status      *Status
}

// New creates a coordinator. pages may be nil when no document is open;
// snippets are then empty.
func New(dir Directory, pages pagetext.Source, opts Options, log *slog.Logger) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		dir:         dir,
		pages:       pages,
		opts:        opts,
		log:         log.With("component", "workspace"),
		now:         time.Now,
		expanded:    hierarchy.NewExpansion(opts.DefaultExpanded...),
		annotations: make(map[int64]annotation.Record),
	}
}

// Close stops a pending debounced search.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

// Search runs a directory search and replaces the rows with the result.
// A response arriving after a newer search was issued is discarded.
func (c *Coordinator) Search(ctx context.Context, term string) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.term = term
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	emps, err := c.dir.Search(ctx, term)

	c.mu.Lock()
	if seq != c.issued {
		c.mu.Unlock()
		c.log.Debug("discarding stale search response", "term", term, "seq", seq)
		return nil
	}
	if err != nil {
		c.setStatusLocked(LevelError, fmt.Sprintf("Search failed: %v", err))
		c.mu.Unlock()
		c.changed()
		return err
	}
	c.records = emps
	c.rows = hierarchy.Build(c.records, c.expanded)
	if c.selected != nil {
		if e, ok := findRecord(c.records, c.selected.ID); ok {
			c.selected = &e
		}
	}
	c.mu.Unlock()

	c.log.Info("search applied", "term", term, "results", len(emps))
	c.changed()
	return nil
}

// SearchDebounced schedules a search for term, replacing any search
// scheduled within the debounce window.
func (c *Coordinator) SearchDebounced(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.opts.Debounce, func() {
		// Failures are already reported through the status line.
		_ = c.Search(context.Background(), term)
	})
}

// RefreshDirectory repeats the most recent search.
func (c *Coordinator) RefreshDirectory(ctx context.Context) error {
	c.mu.Lock()
	term := c.term
	c.mu.Unlock()
	return c.Search(ctx, term)
}

// ToggleGroup expands or collapses a manager group and reports whether
// it is now expanded.
func (c *Coordinator) ToggleGroup(name string) bool {
	c.mu.Lock()
	open := c.expanded.Toggle(name)
	c.rows = hierarchy.Build(c.records, c.expanded)
	c.mu.Unlock()
	c.changed()
	return open
}

// Rows returns a copy of the current grid rows.
func (c *Coordinator) Rows() []hierarchy.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hierarchy.Row(nil), c.rows...)
}

// Expanded returns the expanded group names, sorted.
func (c *Coordinator) Expanded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded.Names()
}

// Managers lists managers for the add-employee form.
func (c *Coordinator) Managers(ctx context.Context) ([]directory.Manager, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	mgrs, err := c.dir.ListManagers(ctx)
	if err != nil {
		c.setStatus(LevelError, fmt.Sprintf("Failed to load managers: %v", err))
		return nil, err
	}
	return mgrs, nil
}

// Select makes the employee with id the target of annotation actions.
func (c *Coordinator) Select(id int64) error {
	c.mu.Lock()
	e, ok := findRecord(c.records, id)
	if !ok {
		c.mu.Unlock()
		err := &PreconditionError{Reason: fmt.Sprintf("employee %d is not in the current list", id)}
		c.setStatus(LevelWarning, err.Reason)
		return err
	}
	c.selected = &e
	c.mu.Unlock()
	c.changed()
	return nil
}

// Selected returns the selected employee.
func (c *Coordinator) Selected() (directory.Employee, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return directory.Employee{}, false
	}
	return *c.selected, true
}

// Draw sets the active rectangle from two corners in any order.
func (c *Coordinator) Draw(page int, x0, y0, x1, y1 float64) Region {
	r := Region{Page: page, Rect: geometry.Normalize(x0, x1, y0, y1)}
	c.mu.Lock()
	c.active = &r
	c.mu.Unlock()
	c.changed()
	return r
}

// ClearRectangle removes the active rectangle.
func (c *Coordinator) ClearRectangle() {
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
	c.changed()
}

// ActiveRectangle returns the rectangle currently shown.
func (c *Coordinator) ActiveRectangle() (Region, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Region{}, false
	}
	return *c.active, true
}

// SaveActiveRectangle stores the active rectangle, with the text it
// covers, as the selected employee's annotation.
func (c *Coordinator) SaveActiveRectangle(ctx context.Context) (annotation.Record, error) {
	c.mu.Lock()
	sel, active := c.selected, c.active
	c.mu.Unlock()

	if sel == nil {
		return annotation.Record{}, c.precondition("Select an employee before saving an annotation")
	}
	if active == nil {
		return annotation.Record{}, c.precondition("Draw a rectangle before saving an annotation")
	}

	snippet, degraded := c.snippetFor(ctx, *active)
	rec := annotation.ToRecord(active.Rect, active.Page, sel.ID, snippet)

	sctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	if _, err := c.dir.SaveAnnotation(sctx, rec); err != nil {
		c.log.Error("save annotation failed", "employee_id", sel.ID, "error", err)
		c.setStatus(LevelError, fmt.Sprintf("Failed to save annotation for %s: %v", sel.Name, err))
		return annotation.Record{}, err
	}

	c.mu.Lock()
	c.applyAnnotationLocked(rec)
	switch {
	case degraded:
		c.setStatusLocked(LevelWarning, fmt.Sprintf("Saved annotation for %s without snippet: page text unavailable", sel.Name))
	case snippet != "":
		c.setStatusLocked(LevelSuccess, fmt.Sprintf("Saved annotation for %s: %q", sel.Name, preview(snippet)))
	default:
		c.setStatusLocked(LevelSuccess, fmt.Sprintf("Saved annotation for %s", sel.Name))
	}
	c.mu.Unlock()

	c.log.Info("annotation saved", "employee_id", sel.ID, "page", active.Page, "snippet_len", len(snippet))
	c.changed()
	return rec, nil
}

// snippetFor extracts the text under r. It reports degraded when the page
// text could not be read, in which case the snippet is empty and the save
// goes ahead.
func (c *Coordinator) snippetFor(ctx context.Context, r Region) (snippet string, degraded bool) {
	if c.pages == nil {
		return "", false
	}
	lines, err := c.pages.TextLines(ctx, r.Page)
	if err != nil {
		c.log.Warn("page text unavailable", "page", r.Page, "error", err)
		return "", true
	}
	res := textmatch.Match(lines, r.Rect)
	c.log.Debug("snippet extracted",
		"page", r.Page,
		"lines_total", res.LinesTotal,
		"lines_kept", res.LinesKept,
		"words_included", res.WordsIncluded,
	)
	return res.Snippet, false
}

// LoadAnnotation shows the stored annotation of employee id. When the
// store cannot be reached it falls back to the last annotation saved in
// this session, then to the coordinates in the employee's search record.
func (c *Coordinator) LoadAnnotation(ctx context.Context, id int64) (annotation.Record, bool, error) {
	c.mu.Lock()
	c.active = nil
	name := fmt.Sprintf("employee %d", id)
	embedded, known := findRecord(c.records, id)
	if known {
		name = embedded.Name
	}
	cached, hasCached := c.annotations[id]
	c.mu.Unlock()
	c.changed()

	lctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	view, err := c.dir.GetAnnotation(lctx, id)

	if err == nil {
		if view.EmployeeName != "" {
			name = view.EmployeeName
		}
		if !view.HasAnnotation {
			c.setStatus(LevelInfo, fmt.Sprintf("No annotation found for %s", name))
			return annotation.Clear(id), false, nil
		}
		rec := view.Record()
		c.show(rec)
		c.setStatus(LevelInfo, fmt.Sprintf("Loaded annotation for %s", name))
		return rec, true, nil
	}

	c.log.Warn("annotation lookup failed, trying local copies", "employee_id", id, "error", err)
	candidates := []annotation.Record{}
	if hasCached {
		candidates = append(candidates, cached)
	}
	if known {
		candidates = append(candidates, embedded.Annotation())
	}
	for _, rec := range candidates {
		if annotation.HasAnnotation(rec) {
			c.show(rec)
			c.setStatus(LevelWarning, fmt.Sprintf("Annotation service unavailable; showing saved coordinates for %s", name))
			return rec, true, nil
		}
	}
	c.setStatus(LevelError, fmt.Sprintf("No annotation found for %s: %v", name, err))
	return annotation.Clear(id), false, err
}

func (c *Coordinator) show(rec annotation.Record) {
	rect, ok := annotation.FromRecord(rec)
	if !ok {
		return
	}
	c.mu.Lock()
	c.active = &Region{Page: rec.PageOrZero(), Rect: rect}
	c.annotations[rec.EmployeeID] = rec
	c.mu.Unlock()
	c.changed()
}

// AddEmployee creates an employee and inserts it into its group.
func (c *Coordinator) AddEmployee(ctx context.Context, in directory.EmployeeInput) (*directory.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	emp, err := c.dir.CreateEmployee(ctx, in)
	if err != nil {
		c.setStatus(LevelError, fmt.Sprintf("Failed to add employee: %v", err))
		return nil, err
	}

	c.mu.Lock()
	c.records = append(c.records, *emp)
	group := hierarchy.GroupOf(*emp)
	switch {
	case c.expanded.Has(group):
		c.rows = hierarchy.InsertMember(c.rows, *emp)
	case !hierarchy.HasGroup(c.rows, group):
		c.expanded.Expand(group)
		c.rows = hierarchy.InsertMember(c.rows, *emp)
	default:
		// Collapsed group: only its count changes.
		c.rows, _ = hierarchy.AdjustCount(c.rows, group, 1)
	}
	c.setStatusLocked(LevelSuccess, fmt.Sprintf("Added %s", emp.Name))
	c.mu.Unlock()

	c.changed()
	return emp, nil
}

// EditEmployee updates an employee. The row is patched in place unless
// the employee moved to another manager.
func (c *Coordinator) EditEmployee(ctx context.Context, id int64, in directory.EmployeeInput) (*directory.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	emp, err := c.dir.UpdateEmployee(ctx, id, in)
	if err != nil {
		c.setStatus(LevelError, fmt.Sprintf("Failed to update employee: %v", err))
		return nil, err
	}

	c.mu.Lock()
	prev, known := findRecord(c.records, id)
	c.records = replaceRecord(c.records, *emp)
	if known && hierarchy.GroupOf(prev) == hierarchy.GroupOf(*emp) {
		if rows, ok := hierarchy.UpdateMember(c.rows, id, hierarchy.Patch{Name: emp.Name, Email: emp.Email, Role: emp.Role}); ok {
			c.rows = rows
		}
	} else {
		c.rows = hierarchy.Build(c.records, c.expanded)
	}
	if c.selected != nil && c.selected.ID == id {
		c.selected = emp
	}
	c.setStatusLocked(LevelSuccess, fmt.Sprintf("Updated %s", emp.Name))
	c.mu.Unlock()

	c.changed()
	return emp, nil
}

// DeleteEmployee removes an employee and its row.
func (c *Coordinator) DeleteEmployee(ctx context.Context, id int64) error {
	dctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	if err := c.dir.DeleteEmployee(dctx, id); err != nil {
		c.setStatus(LevelError, fmt.Sprintf("Failed to delete employee: %v", err))
		return err
	}

	c.mu.Lock()
	prev, known := findRecord(c.records, id)
	c.records = removeRecord(c.records, id)
	if rows, ok := hierarchy.RemoveMember(c.rows, id); ok {
		c.rows = rows
	} else if rows, ok := hierarchy.AdjustCount(c.rows, hierarchy.GroupOf(prev), -1); known && ok {
		// Member hidden in a collapsed group; its header stays.
		c.rows = rows
	} else {
		c.rows = hierarchy.Build(c.records, c.expanded)
	}
	if c.selected != nil && c.selected.ID == id {
		c.selected = nil
		c.active = nil
	}
	delete(c.annotations, id)
	c.setStatusLocked(LevelSuccess, fmt.Sprintf("Deleted %s", prev.Name))
	c.mu.Unlock()

	c.changed()
	return nil
}

// Status returns the current message until it expires.
func (c *Coordinator) Status() (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return Status{}, false
	}
	if c.now().Sub(c.status.At) >= c.opts.StatusTTL {
		c.status = nil
		return Status{}, false
	}
	return *c.status, true
}

func (c *Coordinator) precondition(reason string) error {
	c.setStatus(LevelWarning, reason)
	return &PreconditionError{Reason: reason}
}

func (c *Coordinator) setStatus(level Level, msg string) {
	c.mu.Lock()
	c.setStatusLocked(level, msg)
	c.mu.Unlock()
	c.changed()
}

func (c *Coordinator) setStatusLocked(level Level, msg string) {
	c.status = &Status{Message: msg, Level: level, At: c.now()}
}

// applyAnnotationLocked records rec in the session cache and on the
// employee's record and row.
func (c *Coordinator) applyAnnotationLocked(rec annotation.Record) {
	c.annotations[rec.EmployeeID] = rec
	if e, ok := findRecord(c.records, rec.EmployeeID); ok {
		e.SetAnnotation(rec)
		c.records = replaceRecord(c.records, e)
		if rows, ok := hierarchy.ReplaceMember(c.rows, e); ok {
			c.rows = rows
		}
	}
	if c.selected != nil && c.selected.ID == rec.EmployeeID {
		sel := *c.selected
		sel.SetAnnotation(rec)
		c.selected = &sel
	}
}

func (c *Coordinator) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

func findRecord(records []directory.Employee, id int64) (directory.Employee, bool) {
	for _, e := range records {
		if e.ID == id {
			return e, true
		}
	}
	return directory.Employee{}, false
}

func replaceRecord(records []directory.Employee, e directory.Employee) []directory.Employee {
	out := append([]directory.Employee(nil), records...)
	for i := range out {
		if out[i].ID == e.ID {
			out[i] = e
			return out
		}
	}
	return append(out, e)
}

func removeRecord(records []directory.Employee, id int64) []directory.Employee {
	out := make([]directory.Employee, 0, len(records))
	for _, e := range records {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

package hierarchy

import "sort"

// Expansion is the set of manager groups currently shown expanded. The
// zero value is an empty set ready to use. A nil *Expansion can be read
// as an empty set but not modified.
type Expansion struct {
	names map[string]struct{}
}

// NewExpansion returns a set holding names.
func NewExpansion(names ...string) *Expansion {
	e := &Expansion{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		e.names[n] = struct{}{}
	}
	return e
}

// Has reports whether group name is expanded.
func (e *Expansion) Has(name string) bool {
	if e == nil {
		return false
	}
	_, ok := e.names[name]
	return ok
}

// Expand marks name as expanded.
func (e *Expansion) Expand(name string) {
	if e.names == nil {
		e.names = make(map[string]struct{})
	}
	e.names[name] = struct{}{}
}

// Collapse marks name as collapsed.
func (e *Expansion) Collapse(name string) {
	if e == nil {
		return
	}
	delete(e.names, name)
}

// Toggle flips name and reports whether it is now expanded.
func (e *Expansion) Toggle(name string) bool {
	if e.Has(name) {
		e.Collapse(name)
		return false
	}
	e.Expand(name)
	return true
}

// Names returns the expanded group names in sorted order.
func (e *Expansion) Names() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for n := range e.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (e *Expansion) Clone() *Expansion {
	return NewExpansion(e.Names()...)
}

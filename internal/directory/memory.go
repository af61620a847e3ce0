package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dgallion1/orgmark/internal/annotation"
)

// MemoryStore is a thread-safe in-process Store.
type MemoryStore struct {
	mu        sync.Mutex
	employees map[int64]*Employee
	managers  map[int64]*Manager
	nextEmp   int64
	nextMgr   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		employees: make(map[int64]*Employee),
		managers:  make(map[int64]*Manager),
	}
}

func (s *MemoryStore) Search(ctx context.Context, term string) ([]Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	term = strings.ToLower(term)
	out := make([]Employee, 0, len(s.employees))
	for _, e := range s.employees {
		emp := s.viewLocked(e)
		if term != "" &&
			!strings.Contains(strings.ToLower(emp.Name), term) &&
			!strings.Contains(strings.ToLower(emp.ManagerName), term) {
			continue
		}
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	emp := s.viewLocked(e)
	return &emp, nil
}

func (s *MemoryStore) CreateEmployee(ctx context.Context, in EmployeeInput) (*Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInputLocked(0, in); err != nil {
		return nil, err
	}
	s.nextEmp++
	e := &Employee{
		ID:        s.nextEmp,
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		Country:   in.Country,
		ManagerID: in.ManagerID,
	}
	s.employees[e.ID] = e
	emp := s.viewLocked(e)
	return &emp, nil
}

func (s *MemoryStore) UpdateEmployee(ctx context.Context, id int64, in EmployeeInput) (*Employee, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := s.checkInputLocked(id, in); err != nil {
		return nil, err
	}
	e.Name = in.Name
	e.Email = in.Email
	e.Role = in.Role
	e.Country = in.Country
	if in.ManagerID != nil {
		e.ManagerID = in.ManagerID
	}
	emp := s.viewLocked(e)
	return &emp, nil
}

func (s *MemoryStore) DeleteEmployee(ctx context.Context, id int64) (*Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.employees, id)
	emp := s.viewLocked(e)
	return &emp, nil
}

func (s *MemoryStore) ListManagers(ctx context.Context) ([]Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Manager, 0, len(s.managers))
	for _, m := range s.managers {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetManager(ctx context.Context, id int64) (*Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.managers[id]
	if !ok {
		return nil, ErrManagerNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) UpdateManager(ctx context.Context, id int64, in ManagerInput) (*Manager, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.managers[id]
	if !ok {
		return nil, ErrManagerNotFound
	}
	for _, other := range s.managers {
		if other.ID != id && strings.EqualFold(other.Email, in.Email) {
			return nil, ErrConflict
		}
	}
	m.Name, m.Email, m.Role = in.Name, in.Email, in.Role
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) EnsureManager(ctx context.Context, name string) (*Manager, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.managers {
		if m.Name == name {
			cp := *m
			return &cp, nil
		}
	}
	s.nextMgr++
	m := &Manager{ID: s.nextMgr, Name: name, Email: ManagerEmail(name), Role: "Manager"}
	s.managers[m.ID] = m
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) SaveAnnotation(ctx context.Context, rec annotation.Record) (*Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[rec.EmployeeID]
	if !ok {
		return nil, ErrNotFound
	}
	e.SetAnnotation(rec)
	emp := s.viewLocked(e)
	return &emp, nil
}

func (s *MemoryStore) Close() {}

// checkInputLocked enforces the manager reference and email uniqueness.
func (s *MemoryStore) checkInputLocked(selfID int64, in EmployeeInput) error {
	if in.ManagerID != nil {
		if _, ok := s.managers[*in.ManagerID]; !ok {
			return ErrManagerNotFound
		}
	}
	for _, other := range s.employees {
		if other.ID != selfID && strings.EqualFold(other.Email, in.Email) {
			return ErrConflict
		}
	}
	return nil
}

// viewLocked returns a copy of e with its manager name resolved.
func (s *MemoryStore) viewLocked(e *Employee) Employee {
	emp := *e
	emp.ManagerName = ""
	if e.ManagerID != nil {
		if m, ok := s.managers[*e.ManagerID]; ok {
			emp.ManagerName = m.Name
		}
	}
	return emp
}

package metrics

import (
	"context"
	"time"

	"github.com/dgallion1/orgmark/internal/annotation"
	"github.com/dgallion1/orgmark/internal/directory"
)

// Store wraps a directory.Store, recording every call.
type Store struct {
	directory.Store
	m *Metrics
}

// InstrumentStore returns s with its operations counted and timed.
func InstrumentStore(s directory.Store, m *Metrics) *Store {
	return &Store{Store: s, m: m}
}

func (s *Store) Search(ctx context.Context, term string) ([]directory.Employee, error) {
	start := time.Now()
	out, err := s.Store.Search(ctx, term)
	s.m.RecordStoreOp("search", start, err)
	return out, err
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (*directory.Employee, error) {
	start := time.Now()
	out, err := s.Store.GetEmployee(ctx, id)
	s.m.RecordStoreOp("get_employee", start, err)
	return out, err
}

func (s *Store) CreateEmployee(ctx context.Context, in directory.EmployeeInput) (*directory.Employee, error) {
	start := time.Now()
	out, err := s.Store.CreateEmployee(ctx, in)
	s.m.RecordStoreOp("create_employee", start, err)
	return out, err
}

func (s *Store) UpdateEmployee(ctx context.Context, id int64, in directory.EmployeeInput) (*directory.Employee, error) {
	start := time.Now()
	out, err := s.Store.UpdateEmployee(ctx, id, in)
	s.m.RecordStoreOp("update_employee", start, err)
	return out, err
}

func (s *Store) DeleteEmployee(ctx context.Context, id int64) (*directory.Employee, error) {
	start := time.Now()
	out, err := s.Store.DeleteEmployee(ctx, id)
	s.m.RecordStoreOp("delete_employee", start, err)
	return out, err
}

func (s *Store) ListManagers(ctx context.Context) ([]directory.Manager, error) {
	start := time.Now()
	out, err := s.Store.ListManagers(ctx)
	s.m.RecordStoreOp("list_managers", start, err)
	return out, err
}

func (s *Store) UpdateManager(ctx context.Context, id int64, in directory.ManagerInput) (*directory.Manager, error) {
	start := time.Now()
	out, err := s.Store.UpdateManager(ctx, id, in)
	s.m.RecordStoreOp("update_manager", start, err)
	return out, err
}

func (s *Store) EnsureManager(ctx context.Context, name string) (*directory.Manager, error) {
	start := time.Now()
	out, err := s.Store.EnsureManager(ctx, name)
	s.m.RecordStoreOp("ensure_manager", start, err)
	return out, err
}

func (s *Store) SaveAnnotation(ctx context.Context, rec annotation.Record) (*directory.Employee, error) {
	start := time.Now()
	out, err := s.Store.SaveAnnotation(ctx, rec)
	s.m.RecordStoreOp("save_annotation", start, err)
	if err == nil {
		s.m.AnnotationsSavedTotal.Inc()
	}
	return out, err
}

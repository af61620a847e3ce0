package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/orgmark/internal/directory"
	"github.com/dgallion1/orgmark/internal/hierarchy"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	emps, err := s.store.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		s.storeError(w, "search", err)
		return
	}
	if emps == nil {
		emps = []directory.Employee{}
	}
	writeJSON(w, http.StatusOK, emps)
}

// handleHierarchy returns the grouped grid rows for a search. Repeated
// "expanded" parameters choose the open groups; without any, the
// configured defaults apply. "expanded=" alone collapses everything.
func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	emps, err := s.store.Search(r.Context(), q.Get("name"))
	if err != nil {
		s.storeError(w, "hierarchy", err)
		return
	}
	names := s.cfg.DefaultExpandedGroups
	if values, ok := q["expanded"]; ok {
		names = nil
		for _, v := range values {
			if v != "" {
				names = append(names, v)
			}
		}
	}
	expanded := hierarchy.NewExpansion(names...)
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":     hierarchy.Build(emps, expanded),
		"expanded": expanded.Names(),
	})
}

func (s *Server) handleListManagers(w http.ResponseWriter, r *http.Request) {
	mgrs, err := s.store.ListManagers(r.Context())
	if err != nil {
		s.storeError(w, "list managers", err)
		return
	}
	if mgrs == nil {
		mgrs = []directory.Manager{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"managers": mgrs})
}

func (s *Server) handleUpdateManager(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.storeError(w, "update manager", err)
		return
	}
	var in directory.ManagerInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.storeError(w, "update manager", err)
		return
	}
	if err := in.Validate(); err != nil {
		s.storeError(w, "update manager", err)
		return
	}
	m, err := s.store.UpdateManager(r.Context(), id, in)
	if err != nil {
		s.storeError(w, "update manager", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var in directory.EmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.storeError(w, "create employee", err)
		return
	}
	if err := in.Validate(); err != nil {
		s.storeError(w, "create employee", err)
		return
	}
	emp, err := s.store.CreateEmployee(r.Context(), in)
	if err != nil {
		s.storeError(w, "create employee", err)
		return
	}
	s.log.Info("employee created", "employee_id", emp.ID, "manager", emp.ManagerName)
	writeJSON(w, http.StatusCreated, emp)
}

func (s *Server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.storeError(w, "update employee", err)
		return
	}
	var in directory.EmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.storeError(w, "update employee", err)
		return
	}
	if err := in.Validate(); err != nil {
		s.storeError(w, "update employee", err)
		return
	}
	emp, err := s.store.UpdateEmployee(r.Context(), id, in)
	if err != nil {
		s.storeError(w, "update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.storeError(w, "delete employee", err)
		return
	}
	emp, err := s.store.DeleteEmployee(r.Context(), id)
	if err != nil {
		s.storeError(w, "delete employee", err)
		return
	}
	s.log.Info("employee deleted", "employee_id", id)
	writeJSON(w, http.StatusOK, emp)
}

// handleOrgChart returns every employee with its management path.
func (s *Server) handleOrgChart(w http.ResponseWriter, r *http.Request) {
	emps, err := s.store.Search(r.Context(), "")
	if err != nil {
		s.storeError(w, "org chart", err)
		return
	}
	writeJSON(w, http.StatusOK, hierarchy.OrgChart(emps))
}

type bulkDeleteRequest struct {
	EmployeeIDs []int64 `json:"employee_ids"`
}

// handleBulkDelete removes several employees. Unknown ids are reported
// rather than failing the batch.
func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.storeError(w, "bulk delete", err)
		return
	}
	if len(req.EmployeeIDs) == 0 {
		s.storeError(w, "bulk delete", fmt.Errorf("%w: employee_ids is required", directory.ErrInvalid))
		return
	}

	res := directory.BulkDeleteResult{Deleted: []int64{}, NotFound: []int64{}}
	for _, id := range req.EmployeeIDs {
		_, err := s.store.DeleteEmployee(r.Context(), id)
		switch {
		case err == nil:
			res.Deleted = append(res.Deleted, id)
		case errors.Is(err, directory.ErrNotFound):
			res.NotFound = append(res.NotFound, id)
		default:
			s.storeError(w, "bulk delete", err)
			return
		}
	}
	s.log.Info("employees deleted", "deleted", len(res.Deleted), "not_found", len(res.NotFound))
	writeJSON(w, http.StatusOK, res)
}

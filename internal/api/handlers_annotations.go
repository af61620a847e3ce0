package api

import (
	"fmt"
	"net/http"

	"github.com/dgallion1/orgmark/internal/annotation"
	"github.com/dgallion1/orgmark/internal/directory"
	"github.com/dgallion1/orgmark/internal/geometry"
	"github.com/dgallion1/orgmark/internal/textmatch"
)

func (s *Server) handleGetAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.storeError(w, "get annotation", err)
		return
	}
	emp, err := s.store.GetEmployee(r.Context(), id)
	if err != nil {
		s.storeError(w, "get annotation", err)
		return
	}
	writeJSON(w, http.StatusOK, annotationView(emp))
}

// handlePutAnnotation replaces the stored coordinates. Null fields clear
// the matching column.
func (s *Server) handlePutAnnotation(w http.ResponseWriter, r *http.Request) {
	s.writeAnnotation(w, r, false)
}

// handlePostAnnotation creates an annotation; every coordinate and the
// page are required.
func (s *Server) handlePostAnnotation(w http.ResponseWriter, r *http.Request) {
	s.writeAnnotation(w, r, true)
}

func (s *Server) writeAnnotation(w http.ResponseWriter, r *http.Request, requireComplete bool) {
	id, err := idParam(r, "id")
	if err != nil {
		s.storeError(w, "save annotation", err)
		return
	}
	var c annotation.Coordinates
	if err := decodeJSON(w, r, &c); err != nil {
		s.storeError(w, "save annotation", err)
		return
	}
	if requireComplete && !c.Complete() {
		jsonError(w, "x0, x1, y0, y1 and page are required", http.StatusBadRequest)
		return
	}
	if c.Page != nil && *c.Page < 0 {
		jsonError(w, "page must not be negative", http.StatusBadRequest)
		return
	}
	s.saveAnnotation(w, r, c.Record(id))
}

func (s *Server) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.storeError(w, "clear annotation", err)
		return
	}
	s.saveAnnotation(w, r, annotation.Clear(id))
}

// captureRequest is a rectangle drawn on the configured document.
type captureRequest struct {
	Page int     `json:"page"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
}

func (req captureRequest) rect() geometry.Rect {
	return geometry.Normalize(req.X0, req.X1, req.Y0, req.Y1)
}

// handleCaptureAnnotation extracts the text under a rectangle of the
// configured document and saves it with the coordinates. When the page
// text cannot be read the annotation is saved without a snippet.
func (s *Server) handleCaptureAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.storeError(w, "capture annotation", err)
		return
	}
	var req captureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.storeError(w, "capture annotation", err)
		return
	}
	if req.Page < 0 {
		jsonError(w, "page must not be negative", http.StatusBadRequest)
		return
	}

	rect := req.rect()
	snippet, warning := "", ""
	if s.pages != nil {
		lines, err := s.pages.TextLines(r.Context(), req.Page)
		if err != nil {
			s.log.Warn("page text unavailable, saving without snippet", "employee_id", id, "page", req.Page, "error", err)
			warning = "page text unavailable: annotation saved without snippet"
		} else {
			snippet = textmatch.ExtractSnippet(lines, rect)
		}
		if s.metrics != nil {
			s.metrics.RecordSnippet(snippet, err)
		}
	}

	emp, ok := s.storeAnnotation(w, r, annotation.ToRecord(rect, req.Page, id, snippet))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, captureResponse{View: annotationView(emp), Warning: warning})
}

// captureResponse is the saved annotation plus a warning when the
// snippet could not be extracted.
type captureResponse struct {
	annotation.View
	Warning string `json:"warning,omitempty"`
}

func (s *Server) saveAnnotation(w http.ResponseWriter, r *http.Request, rec annotation.Record) {
	if emp, ok := s.storeAnnotation(w, r, rec); ok {
		writeJSON(w, http.StatusOK, annotationView(emp))
	}
}

// storeAnnotation saves rec, writing the error response on failure.
func (s *Server) storeAnnotation(w http.ResponseWriter, r *http.Request, rec annotation.Record) (*directory.Employee, bool) {
	emp, err := s.store.SaveAnnotation(r.Context(), rec)
	if err != nil {
		s.storeError(w, fmt.Sprintf("save annotation for employee %d", rec.EmployeeID), err)
		return nil, false
	}
	s.log.Info("annotation saved",
		"employee_id", emp.ID,
		"page", rec.PageOrZero(),
		"cleared", !annotation.HasAnnotation(rec),
		"snippet_len", len(rec.SnippetOrEmpty()),
	)
	return emp, true
}

func annotationView(emp *directory.Employee) annotation.View {
	return annotation.NewView(emp.Name, emp.Annotation())
}

package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/orgmark/internal/textmatch"
	"github.com/go-chi/chi/v5"
)

// pageParam parses the 0-based page index and checks a document is open.
func (s *Server) pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	if s.pages == nil {
		jsonError(w, "no document configured", http.StatusServiceUnavailable)
		return 0, false
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 0 {
		jsonError(w, "page must be a non-negative integer", http.StatusBadRequest)
		return 0, false
	}
	return page, true
}

func (s *Server) handlePageLines(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageParam(w, r)
	if !ok {
		return
	}
	lines, err := s.pages.TextLines(r.Context(), page)
	if err != nil {
		s.storeError(w, "page lines", err)
		return
	}
	if lines == nil {
		lines = []textmatch.TextLine{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page, "lines": lines})
}

// handlePageSnippet previews the snippet a rectangle would capture,
// with the per-word decisions behind it.
func (s *Server) handlePageSnippet(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageParam(w, r)
	if !ok {
		return
	}
	var req captureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.storeError(w, "page snippet", err)
		return
	}
	lines, err := s.pages.TextLines(r.Context(), page)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSnippet("", err)
		}
		s.storeError(w, "page snippet", err)
		return
	}

	res := textmatch.Match(lines, req.rect())
	if s.metrics != nil {
		s.metrics.RecordSnippet(res.Snippet, nil)
	}
	if res.Words == nil {
		res.Words = []textmatch.WordMatch{}
	}
	writeJSON(w, http.StatusOK, res)
}

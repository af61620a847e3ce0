package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dgallion1/orgmark/internal/directory"
	"github.com/dgallion1/orgmark/internal/pagetext"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// storeError maps directory and page errors onto status codes.
func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalid):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, directory.ErrNotFound), errors.Is(err, directory.ErrManagerNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pagetext.ErrPageOutOfRange):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, directory.ErrConflict):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, directory.ErrUnavailable):
		s.log.Warn("store unavailable", "op", op, "error", err)
		jsonError(w, "directory temporarily unavailable", http.StatusServiceUnavailable)
	default:
		s.log.Error("request failed", "op", op, "error", err)
		jsonError(w, op+" failed", http.StatusInternalServerError)
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", directory.ErrInvalid)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", directory.ErrInvalid, err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", directory.ErrInvalid, name)
	}
	return id, nil
}

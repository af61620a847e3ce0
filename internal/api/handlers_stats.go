package api

import "net/http"

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	pages := 0
	if s.pages != nil {
		pages = s.pages.NumPages()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth":  s.recordQueueDepth(),
		"tracked_jobs": s.orchestrator.TrackedJobs(),
		"pages":        pages,
	})
}

// recordQueueDepth publishes the import queue depth and returns it.
func (s *Server) recordQueueDepth() int {
	depth := s.orchestrator.QueueDepth()
	if s.metrics != nil {
		s.metrics.ImportQueueSize.Set(float64(depth))
	}
	return depth
}

package api

import "net/http"

// HandleStatus handles GET /status with backend and buffer diagnostics.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, "api.status", http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Status())
}

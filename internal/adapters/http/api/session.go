package api

import (
	"net/http"
	"strings"
)

type emailRequest struct {
	Email string `json:"email"`
}

// HandleSession handles GET /session.
func (s *Server) HandleSession(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, "api.session", http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.resolve(w, r))
}

// HandleConfirmEmail handles POST /session/email. The confirmed address is
// kept in a cookie so later requests resolve through it when the Session
// token is gone.
func (s *Server) HandleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	const op = "api.confirm_email"
	if !s.allow(w, r, op, http.MethodPost) {
		return
	}
	var req emailRequest
	if err := decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	sess, err := s.deps.ConfirmEmail(r.Context(), email)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	s.setCookie(w, CookieEmail, email)
	s.storeSession(w, sess)
	writeJSON(w, http.StatusOK, sess)
}

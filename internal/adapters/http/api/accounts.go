package api

import (
	"net/http"
	"strings"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutResponse struct {
	Revoked int `json:"revoked"`
}

// HandleRegister handles POST /accounts.
func (s *Server) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	if !s.allow(w, r, op, http.MethodPost) {
		return
	}
	var req registerRequest
	if err := decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.deps.Register(r.Context(), strings.TrimSpace(req.Email), req.Password, req.DisplayName)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleLogin handles POST /login.
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	if !s.allow(w, r, op, http.MethodPost) {
		return
	}
	var req loginRequest
	if err := decode(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.fail(w, r, NewKind(op, ErrBadRequest))
		return
	}
	sess, err := s.deps.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	s.storeSession(w, sess)
	writeJSON(w, http.StatusOK, sess)
}

// HandleLogout handles POST /logout. Every token of the caller is revoked
// and the identity cookies are cleared; the marker cookie stays.
func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, "api.logout", http.MethodPost) {
		return
	}
	sess := s.deps.ResolveSession(r.Context(), s.identityRequest(w, r))
	revoked := 0
	if sess.Persistent && !sess.IsEphemeral() {
		revoked = s.deps.Logout(r.Context(), sess.Identity)
	}
	s.clearCookie(w, CookieAuth)
	s.clearCookie(w, CookieSession)
	s.clearCookie(w, CookieEmail)
	writeJSON(w, http.StatusOK, logoutResponse{Revoked: revoked})
}

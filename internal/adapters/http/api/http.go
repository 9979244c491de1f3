// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/renshu/internal/app"
	"github.com/okian/renshu/internal/domain/account"
	"github.com/okian/renshu/internal/domain/history"
	"github.com/okian/renshu/internal/domain/identity"
	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/pkg/logger"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ResolveSession(ctx context.Context, req identity.Request) identity.UserSession
	ConfirmEmail(ctx context.Context, email string) (identity.UserSession, error)

	Register(ctx context.Context, email, password, displayName string) (account.Profile, error)
	Login(ctx context.Context, email, password string) (identity.UserSession, error)
	Logout(ctx context.Context, userID string) int

	RecordPractice(ctx context.Context, userID string, sub model.Submission) history.Ack
	GetHistory(ctx context.Context, userID string, f history.Filter) []model.LegacyRecord
	DeleteHistory(ctx context.Context, userID, key string) history.DeleteResult
	Summary(ctx context.Context, userID, key string) history.Summary
	RecentThemes(ctx context.Context, userID, key string, limit int) []string

	Status() service.Status
}

// Server wires HTTP routes for the practice history API.
type Server struct {
	deps          Dependencies
	healthHandler *HealthHandler

	cookieSecure bool
	maxLimit     int
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		healthHandler: NewHealthHandler(),
		maxLimit:      DefaultMaxLimit,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/status", MetricsMiddleware(s.HandleStatus, "status"))
	mux.HandleFunc("/session/email", MetricsMiddleware(s.HandleConfirmEmail, "session_email"))
	mux.HandleFunc("/session", MetricsMiddleware(s.HandleSession, "session"))
	mux.HandleFunc("/accounts", MetricsMiddleware(s.HandleRegister, "accounts"))
	mux.HandleFunc("/login", MetricsMiddleware(s.HandleLogin, "login"))
	mux.HandleFunc("/logout", MetricsMiddleware(s.HandleLogout, "logout"))
	mux.HandleFunc("/history/summary", MetricsMiddleware(s.HandleSummary, "history_summary"))
	mux.HandleFunc("/history/themes", MetricsMiddleware(s.HandleThemes, "history_themes"))
	mux.HandleFunc("/history", MetricsMiddleware(s.HandleHistory, "history"))

	s.logger.Info(ctx, "http routes registered")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.Error(err))
	}
	writeError(w, status, code, err)
}

// allow reports whether r uses one of methods and writes 405 otherwise.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, op string, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	for _, m := range methods {
		w.Header().Add("Allow", m)
	}
	s.fail(w, r, NewKind(op, ErrMethod))
	return false
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	if r.Body == nil {
		return NewKind(op, ErrBadRequest)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return WrapKind(op, ErrBadRequest, fmt.Errorf("body exceeds %d bytes", maxErr.Limit))
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

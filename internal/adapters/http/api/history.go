package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/renshu/internal/domain/history"
	"github.com/okian/renshu/internal/domain/model"
)

// defaultThemes is the number of themes returned without a limit.
const defaultThemes = 10

type historyResponse struct {
	Identity  string               `json:"identity"`
	Ephemeral bool                 `json:"ephemeral"`
	Records   []model.LegacyRecord `json:"records"`
}

type deleteResponse struct {
	Durable        int64  `json:"durable"`
	Buffered       int    `json:"buffered"`
	DurableSkipped bool   `json:"durable_skipped"`
	DurableError   string `json:"durable_error,omitempty"`
}

type themesResponse struct {
	Themes []string `json:"themes"`
}

// HandleHistory dispatches /history by method.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, "api.history", http.MethodGet, http.MethodPost, http.MethodDelete) {
		return
	}
	switch r.Method {
	case http.MethodPost:
		s.handleRecord(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		s.handleList(w, r)
	}
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_practice"
	var sub model.Submission
	if err := decode(w, r, op, &sub); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(sub.Type) == "" {
		s.fail(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("missing type")))
		return
	}
	sess := s.resolve(w, r)
	ack := s.deps.RecordPractice(r.Context(), sess.Identity, sub)
	status := http.StatusCreated
	if !ack.Durable {
		status = http.StatusAccepted
	}
	writeJSON(w, status, ack)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	limit, err := s.limit(r, 0)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	sess := s.resolve(w, r)
	records := s.deps.GetHistory(r.Context(), sess.Identity, history.Filter{
		Key:   r.URL.Query().Get("type"),
		Limit: limit,
	})
	if records == nil {
		records = []model.LegacyRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Identity:  sess.Identity,
		Ephemeral: sess.IsEphemeral(),
		Records:   records,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(w, r)
	res := s.deps.DeleteHistory(r.Context(), sess.Identity, r.URL.Query().Get("type"))
	resp := deleteResponse{
		Durable:        res.Durable,
		Buffered:       res.Buffered,
		DurableSkipped: res.DurableSkip,
	}
	if res.DurableErr != nil {
		resp.DurableError = res.DurableErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSummary handles GET /history/summary.
func (s *Server) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, "api.summary", http.MethodGet) {
		return
	}
	sess := s.resolve(w, r)
	writeJSON(w, http.StatusOK, s.deps.Summary(r.Context(), sess.Identity, r.URL.Query().Get("type")))
}

// HandleThemes handles GET /history/themes.
func (s *Server) HandleThemes(w http.ResponseWriter, r *http.Request) {
	const op = "api.themes"
	if !s.allow(w, r, op, http.MethodGet) {
		return
	}
	limit, err := s.limit(r, defaultThemes)
	if err != nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	sess := s.resolve(w, r)
	themes := s.deps.RecentThemes(r.Context(), sess.Identity, r.URL.Query().Get("type"), limit)
	if themes == nil {
		themes = []string{}
	}
	writeJSON(w, http.StatusOK, themesResponse{Themes: themes})
}

// limit parses the limit query parameter, capped by the configured maximum.
func (s *Server) limit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q; must be a positive integer", raw)
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}
	return n, nil
}

package api

import (
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/okian/renshu/internal/domain/fingerprint"
	"github.com/okian/renshu/internal/domain/identity"
)

// Cookie names carrying per-client identity state.
const (
	CookieAuth    = "renshu_auth"
	CookieSession = "renshu_session"
	CookieEmail   = "renshu_email"
	CookieMarker  = "renshu_sid"

	// SessionTokenParam lets an external link carry a Session token.
	SessionTokenParam = "session_token"
)

const cookieMaxAge = 30 * 24 * time.Hour

// identityRequest builds the resolution input from r. A client without a
// marker cookie gets a new one so its fingerprint can stabilize.
func (s *Server) identityRequest(w http.ResponseWriter, r *http.Request) identity.Request {
	req := identity.Request{
		AuthToken:    cookieValue(r, CookieAuth),
		SessionToken: cookieValue(r, CookieSession),
		Email:        cookieValue(r, CookieEmail),
	}
	if v := r.URL.Query().Get(SessionTokenParam); v != "" {
		req.SessionToken = v
	}

	marker := cookieValue(r, CookieMarker)
	if marker == "" {
		marker = uuid.NewString()
		s.setCookie(w, CookieMarker, marker)
	}
	req.Signals = signals(r, marker)
	return req
}

// resolve identifies the caller of r and refreshes its token cookies.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) identity.UserSession {
	sess := s.deps.ResolveSession(r.Context(), s.identityRequest(w, r))
	s.storeSession(w, sess)
	return sess
}

// storeSession keeps the tokens backing sess on the client.
func (s *Server) storeSession(w http.ResponseWriter, sess identity.UserSession) {
	if sess.AuthToken != "" {
		s.setCookie(w, CookieAuth, sess.AuthToken)
	}
	if sess.SessionToken != "" {
		s.setCookie(w, CookieSession, sess.SessionToken)
	}
}

func signals(r *http.Request, marker string) fingerprint.Signals {
	host, port, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = r.Host
		port = ""
	}
	params := map[string]string{}
	for name, values := range r.URL.Query() {
		if len(values) == 0 || name == SessionTokenParam || !fingerprint.SafeParam(name) {
			continue
		}
		params[name] = values[0]
	}
	return fingerprint.Signals{
		Host:          host,
		Port:          port,
		Path:          r.URL.Path,
		SessionMarker: marker,
		Params:        params,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

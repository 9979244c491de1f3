package api

import "github.com/okian/renshu/pkg/logger"

// DefaultMaxLimit caps the limit query parameter when no cap is configured.
const DefaultMaxLimit = 500

// Option configures a Server.
type Option func(*Server)

// WithCookieSecure marks identity cookies Secure.
func WithCookieSecure(secure bool) Option {
	return func(s *Server) { s.cookieSecure = secure }
}

// WithMaxLimit caps the limit query parameter.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

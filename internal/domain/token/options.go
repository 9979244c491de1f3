package token

import (
	"time"

	"github.com/okian/renshu/pkg/logger"
)

const (
	// DefaultTTL is the lifetime of a minted token.
	DefaultTTL = 30 * 24 * time.Hour
	// DefaultLength is the number of hex characters in a token value.
	DefaultLength = 32
)

// Option configures the in-memory store.
type Option func(*memoryStore)

// WithSecret sets the digest key. Without it a random key is drawn, so
// tokens do not survive a restart anyway.
func WithSecret(secret []byte) Option {
	return func(s *memoryStore) {
		if len(secret) > 0 {
			s.secret = append([]byte(nil), secret...)
		}
	}
}

// WithTTL sets the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *memoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLength sets the hex length kept from the 64-character digest.
func WithLength(n int) Option {
	return func(s *memoryStore) {
		if n >= 16 && n <= 64 {
			s.length = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *memoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *memoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

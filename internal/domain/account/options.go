package account

import (
	"time"

	"github.com/okian/renshu/pkg/logger"
)

const (
	// DefaultIterations is the PBKDF2 round count.
	DefaultIterations = 100000
	// DefaultMaxFailures is the number of consecutive failures that locks an account.
	DefaultMaxFailures = 5
	// DefaultLockout is how long a locked account stays locked.
	DefaultLockout = 30 * time.Minute
)

// Option configures a Manager.
type Option func(*Manager)

// WithIterations sets the PBKDF2 round count. Hashes made with one count
// do not verify under another.
func WithIterations(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.iterations = n
		}
	}
}

// WithLockout sets the failure threshold and the lock duration.
func WithLockout(maxFailures int, d time.Duration) Option {
	return func(m *Manager) {
		if maxFailures > 0 {
			m.maxFailures = maxFailures
		}
		if d > 0 {
			m.lockout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

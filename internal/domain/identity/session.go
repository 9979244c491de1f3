// Package identity resolves who the current caller is through a fixed
// precedence chain of strategies.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/renshu/internal/domain/fingerprint"
	"github.com/okian/renshu/internal/domain/token"
)

// Method names the strategy that produced a session.
type Method string

const (
	MethodPasswordAuth Method = "password_auth"
	MethodSessionToken Method = "session_token"
	MethodEmail        Method = "email"
	MethodFingerprint  Method = "fingerprint"
	MethodEphemeral    Method = "ephemeral"
)

// EphemeralPrefix marks identities with no durable credential behind them.
const EphemeralPrefix = "ephemeral:"

// UserSession is the resolved caller of one interaction.
type UserSession struct {
	Identity      string            `json:"identity"`
	Method        Method            `json:"method"`
	Authenticated bool              `json:"authenticated"`
	Persistent    bool              `json:"persistent"`
	CreatedAt     time.Time         `json:"created_at"`
	LastActive    time.Time         `json:"last_active"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Profile       *token.Profile    `json:"profile,omitempty"`

	// Token values backing the session, echoed back to the client.
	AuthToken    string `json:"-"`
	SessionToken string `json:"session_token,omitempty"`
}

// Touch records activity.
func (s *UserSession) Touch(now time.Time) {
	s.LastActive = now
}

// IsEphemeral reports whether the identity has no durable credential.
func (s UserSession) IsEphemeral() bool {
	return IsEphemeral(s.Identity)
}

// IsEphemeral reports whether identity carries the ephemeral prefix.
func IsEphemeral(identity string) bool {
	return strings.HasPrefix(identity, EphemeralPrefix)
}

// Request carries the per-client state a resolution may use.
type Request struct {
	// AuthToken references an Auth token issued by a previous login.
	AuthToken string
	// SessionToken is the Session token carried by an external reference.
	SessionToken string
	// Email is set only after the caller confirmed it.
	Email   string
	Signals fingerprint.Signals
}

func newSession(identity string, method Method, now time.Time) *UserSession {
	return &UserSession{
		Identity:   identity,
		Method:     method,
		CreatedAt:  now,
		LastActive: now,
		Metadata:   map[string]string{},
	}
}

func newEphemeralIdentity() string {
	return EphemeralPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:fingerprint.Length]
}

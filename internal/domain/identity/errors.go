package identity

import "errors"

var (
	// ErrNoCredential means a strategy had nothing to work with and falls through.
	ErrNoCredential = errors.New("identity: no credential presented")
	// ErrWrongTokenKind means a token resolved but was of the other kind.
	ErrWrongTokenKind = errors.New("identity: token kind mismatch")
	// ErrNotAuthenticated means an Auth token lacked the authenticated flag.
	ErrNotAuthenticated = errors.New("identity: token is not authenticated")
	// ErrInvalidEmail means the supplied address failed validation.
	ErrInvalidEmail = errors.New("identity: invalid email")
	// ErrStrategyPanic wraps a recovered panic inside a strategy.
	ErrStrategyPanic = errors.New("identity: strategy panicked")
)

package account

import "errors"

var (
	// ErrInvalidCredentials means the email is unknown or the password is wrong.
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	// ErrAccountLocked means too many consecutive failures locked the account.
	ErrAccountLocked = errors.New("account: locked")
	// ErrAccountSuspended means the account was suspended.
	ErrAccountSuspended = errors.New("account: suspended")
	// ErrEmailTaken means another account already uses the email.
	ErrEmailTaken = errors.New("account: email already registered")
	// ErrWeakPassword means the password fails the strength rules.
	ErrWeakPassword = errors.New("account: password too weak")
	// ErrInvalidEmail means the email is not an address.
	ErrInvalidEmail = errors.New("account: invalid email")
	// ErrNotFound means no account has the given id.
	ErrNotFound = errors.New("account: not found")
	// ErrNoStore means the manager has no backing store.
	ErrNoStore = errors.New("account: no backing store")
)

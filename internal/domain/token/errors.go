package token

import "errors"

var (
	// ErrTokenNotFound means no entry exists for the value.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired means the entry existed but was past its expiry; it has been deleted.
	ErrTokenExpired = errors.New("token expired")
)

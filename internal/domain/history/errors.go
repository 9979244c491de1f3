package history

import "errors"

var (
	// ErrInvalidIdentityShape means an identity is not a structured key and
	// cannot be written to the durable backend.
	ErrInvalidIdentityShape = errors.New("history: identity is not a structured key")
	// ErrGenerationMismatch means a row was handed to the wrong translator.
	ErrGenerationMismatch = errors.New("history: schema generation mismatch")
	// ErrNoTranslator means no translator is registered for a generation.
	ErrNoTranslator = errors.New("history: no translator for generation")
	// ErrMalformedRow means a stored row could not be decoded.
	ErrMalformedRow = errors.New("history: malformed row")
)

package taxonomy

import "errors"

var (
	// ErrClassificationMiss means a label matched no rule.
	ErrClassificationMiss = errors.New("taxonomy: label not recognized")
	// ErrUnknownKey means a canonical key is not in the table.
	ErrUnknownKey = errors.New("taxonomy: unknown key")
	// ErrNoGenerationID means the entry predates or postdates a generation.
	ErrNoGenerationID = errors.New("taxonomy: no id in generation")
)

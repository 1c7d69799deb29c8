package catalog

import "errors"

// Domain errors for catalog operations.
var (
	// ErrUnknownEntity is returned when configuration names an entity the
	// catalog does not define.
	ErrUnknownEntity = errors.New("catalog: unknown entity")

	// ErrUnknownLanguage is returned for an unsupported translation language.
	ErrUnknownLanguage = errors.New("catalog: unknown language")
)

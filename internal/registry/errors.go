package registry

import "errors"

// Domain errors for the registry package.
var (
	// ErrDuplicateID is returned when an entity id is registered twice.
	ErrDuplicateID = errors.New("registry: duplicate entity id")

	// ErrEntityNotFound is returned when an id or name is not registered.
	ErrEntityNotFound = errors.New("registry: entity not found")
)

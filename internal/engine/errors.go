package engine

import "errors"

// Domain errors for engine operations.
var (
	// ErrNotRunning is returned by operator methods once Run has returned.
	ErrNotRunning = errors.New("engine: not running")

	// ErrInvalidValue is returned when a value is not acceptable for the
	// target entity.
	ErrInvalidValue = errors.New("engine: invalid value")

	// ErrPrecondition is returned when a command needs a value that has not
	// been read yet.
	ErrPrecondition = errors.New("engine: precondition not met")

	// ErrTransport is returned by Run when the bus stops delivering frames.
	ErrTransport = errors.New("engine: transport failed")
)

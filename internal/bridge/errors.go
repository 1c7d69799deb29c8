package bridge

import "errors"

// Sentinel errors for bridge operations.
var (
	// ErrInvalidPayload is returned when an inbound message cannot be parsed.
	ErrInvalidPayload = errors.New("bridge: invalid payload")

	// ErrUnknownCommand is returned for a command topic with no handler.
	ErrUnknownCommand = errors.New("bridge: unknown command")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("bridge: missing dependency")
)

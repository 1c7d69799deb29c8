package canbus

import "errors"

// Domain errors for the canbus package.
var (
	// ErrInvalidID is returned when an identifier does not fit 11 or 29 bits.
	ErrInvalidID = errors.New("canbus: invalid identifier")

	// ErrInvalidLength is returned when a frame carries more than 8 bytes.
	ErrInvalidLength = errors.New("canbus: invalid data length")

	// ErrClosed is returned when a transport is used after Close.
	ErrClosed = errors.New("canbus: transport closed")

	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("canbus: unknown driver")

	// ErrMalformedLine is returned when an SLCAN line cannot be parsed.
	ErrMalformedLine = errors.New("canbus: malformed slcan line")
)

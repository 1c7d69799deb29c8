package entity

import "errors"

// Domain errors for the entity package.
var (
	// ErrNoCommand is returned when a request is attempted on an entity
	// without a configured command.
	ErrNoCommand = errors.New("entity: no command configured")

	// ErrInvalidCommand is returned when a command string cannot be parsed.
	ErrInvalidCommand = errors.New("entity: invalid command")

	// ErrInvalidDefinition is returned when a definition is inconsistent.
	ErrInvalidDefinition = errors.New("entity: invalid definition")

	// ErrDecode is returned when a payload does not cover the value window.
	ErrDecode = errors.New("entity: decode failed")

	// ErrNotWritable is returned when a value is sent to a read-only kind.
	ErrNotWritable = errors.New("entity: not writable")

	// ErrUnknownOption is returned when a select option is not in the table.
	ErrUnknownOption = errors.New("entity: unknown option")

	// ErrTypeMismatch is returned when a value of the wrong type is supplied.
	ErrTypeMismatch = errors.New("entity: type mismatch")
)

// ErrOutOfRange is returned when a decoded sensor reading falls outside
// its plausibility range.
var ErrOutOfRange = errors.New("entity: value out of range")

func isOutOfRange(err error) bool {
	return errors.Is(err, ErrOutOfRange)
}

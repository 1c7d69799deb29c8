package derived

import "errors"

// Domain errors for the derived package.
var (
	// ErrDuplicateFormula is returned when two formulas target the same id.
	ErrDuplicateFormula = errors.New("derived: duplicate formula")
)

package symbols

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateDefinition is returned when a name is defined twice in the
	// same scope and pass with different values.
	ErrDuplicateDefinition = errors.New("duplicate definition")
	// ErrKindMismatch is returned when a name changes between label, constant and variable.
	ErrKindMismatch = errors.New("symbol redefined with a different kind")
	// ErrNoScope is returned by ExitMacroScope without a matching EnterMacroScope.
	ErrNoScope = errors.New("no macro scope to exit")
)

// DuplicateError describes a conflicting definition.
type DuplicateError struct {
	Name     string
	Previous string
	Value    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%q already defined as %s, cannot redefine as %s", e.Name, e.Previous, e.Value)
}

// Unwrap returns ErrDuplicateDefinition.
func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateDefinition
}

package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrUndefinedSymbol is returned when a symbol has no value yet. During
	// intermediate passes this is recoverable.
	ErrUndefinedSymbol = errors.New("undefined symbol")
	// ErrTypeMismatch is returned when an operator gets operands of kinds it cannot combine.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrDivisionByZero is returned by / and % with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrCyclicDependency is returned when a symbol's value depends on itself.
	ErrCyclicDependency = errors.New("cyclic dependency")
	// ErrUnknownFunction is returned for calls to functions nobody provides.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrArity is returned when a function gets the wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")
	// ErrNoAddress is returned when $ is used where no program counter exists.
	ErrNoAddress = errors.New("current address is not available here")
)

// UndefinedError names the symbol that could not be resolved.
type UndefinedError struct {
	Name string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined symbol %q", e.Name)
}

// Unwrap returns ErrUndefinedSymbol.
func (e *UndefinedError) Unwrap() error {
	return ErrUndefinedSymbol
}

// CycleError names a symbol found on its own dependency path.
type CycleError struct {
	Name string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic dependency through %q", e.Name)
}

// Unwrap returns ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

// UndefinedName returns the symbol name carried by err, if it is an undefined symbol error.
func UndefinedName(err error) (string, bool) {
	var ue *UndefinedError
	if errors.As(err, &ue) {
		return ue.Name, true
	}
	return "", false
}

package assembler

import (
	"errors"

	"github.com/Urethramancer/cpcasm/expand"
	"github.com/Urethramancer/cpcasm/expr"
	"github.com/Urethramancer/cpcasm/listing"
	"github.com/Urethramancer/cpcasm/segment"
	"github.com/Urethramancer/cpcasm/symbols"
)

// Error carries the location of the token that failed.
type Error = listing.Error

var (
	ErrUndefinedSymbol       = expr.ErrUndefinedSymbol
	ErrCyclicDependency      = expr.ErrCyclicDependency
	ErrTypeMismatch          = expr.ErrTypeMismatch
	ErrDivisionByZero        = expr.ErrDivisionByZero
	ErrDuplicateDefinition   = symbols.ErrDuplicateDefinition
	ErrMacroExpansionTooDeep = expand.ErrMacroExpansionTooDeep
	ErrUndefinedMacro        = expand.ErrUndefinedMacro
	ErrMacroArgCount         = expand.ErrMacroArgCount
	ErrAddressOverflow       = segment.ErrAddressOverflow
	ErrLimitExceeded         = segment.ErrLimitExceeded
	ErrProtected             = segment.ErrProtected
	ErrNotConstant           = expand.ErrNotConstant
	ErrFail                  = expand.ErrFail

	// ErrNotConverged is returned when the pass ceiling is reached.
	ErrNotConverged = errors.New("assembly did not converge")
	// ErrInvalidOperand is returned for operand combinations with no encoding.
	ErrInvalidOperand = errors.New("invalid operand encoding")
	// ErrUnknownInstruction is returned for mnemonics the encoder doesn't know.
	ErrUnknownInstruction = errors.New("unknown instruction")
	// ErrValueOutOfRange is returned when a value doesn't fit its field.
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrSegmentOverlap is returned in strict mode when output bytes collide.
	ErrSegmentOverlap = errors.New("segment overlap")
	// ErrAssertion is returned by a failed ASSERT.
	ErrAssertion = errors.New("assertion failed")
)

// UndefinedSymbol returns the name behind an undefined symbol error.
func UndefinedSymbol(err error) (string, bool) {
	return expr.UndefinedName(err)
}

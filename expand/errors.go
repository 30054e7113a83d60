package expand

import "errors"

var (
	// ErrUndefinedMacro is returned when a macro is invoked before its definition.
	ErrUndefinedMacro = errors.New("undefined macro")
	// ErrMacroArgCount is returned when an invocation's arguments don't match the parameters.
	ErrMacroArgCount = errors.New("wrong number of macro arguments")
	// ErrDuplicateMacro is returned when a macro name is defined twice.
	ErrDuplicateMacro = errors.New("macro already defined")
	// ErrMacroArgument is returned when a register argument is used inside an expression.
	ErrMacroArgument = errors.New("invalid macro argument")
	// ErrMacroExpansionTooDeep is returned when macro or include nesting exceeds the depth guard.
	ErrMacroExpansionTooDeep = errors.New("macro expansion too deep")
	// ErrIncludeCycle is returned when a file includes itself, directly or not.
	ErrIncludeCycle = errors.New("include cycle")
	// ErrNotConstant is returned when a repeat count or binary range depends on
	// symbols not known before assembly.
	ErrNotConstant = errors.New("value must be known before assembly")
	// ErrNoLoader is returned for include and incbin without a loader.
	ErrNoLoader = errors.New("no loader configured")
	// ErrNotFound is returned by loaders for missing files.
	ErrNotFound = errors.New("file not found")
	// ErrLoop is returned for a loop that would not end or has a zero step.
	ErrLoop = errors.New("loop does not terminate")
	// ErrStruct is returned for a struct field that has no fixed size.
	ErrStruct = errors.New("invalid struct")
	// ErrFail is returned by FAIL.
	ErrFail = errors.New("assembly stopped")
)

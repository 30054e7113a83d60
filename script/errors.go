package script

import "errors"

var (
	// ErrScript wraps failures raised while a script runs.
	ErrScript = errors.New("script failed")
	// ErrNotScript is returned by Loader for files that are not Lua scripts.
	ErrNotScript = errors.New("not a listing script")
	// ErrFunctionResult is returned when a user function gives a value that
	// is not a number, string or boolean.
	ErrFunctionResult = errors.New("unusable function result")
)

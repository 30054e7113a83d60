package listing

import "errors"

// Error attaches the location of the offending token to an error.
type Error struct {
	Location Location
	Err      error
}

func (e *Error) Error() string {
	return e.Location.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// At wraps err with the location of t, keeping the innermost location
// when err already carries one.
func At(t Token, err error) error {
	if err == nil {
		return nil
	}
	var located *Error
	if errors.As(err, &located) {
		return err
	}
	return &Error{Location: t.Loc(), Err: err}
}

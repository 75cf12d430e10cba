package cfg

import "fmt"

// Error reports a missing or invalid configuration value.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration '%s': %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(field, format string, args ...any) *Error {
	return &Error{Field: field, Err: fmt.Errorf(format, args...)}
}

package autoescape

import (
	"errors"
	"fmt"
)

// ErrUnsafeContext is reported for a placeholder at a position no escaper handles.
var ErrUnsafeContext = errors.New("placeholder in unsafe context")

// Error is a template error with its position in the template source.
type Error struct {
	Template string
	Line     int
	Column   int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %v", e.Template, e.Line, e.Column, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

package statemachine

import "fmt"

// ParseError reports an input character for which the table has no transition.
// The machine that returned it stays in ErrorState until reset.
type ParseError struct {
	Char     rune
	State    string // internal state name
	External string // external state name
	Line     int
	Column   int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unexpected character %q in state %s (%s) at %d:%d",
		e.Char, e.State, e.External, e.Line, e.Column)
}

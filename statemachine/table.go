package statemachine

import (
	"fmt"
)

// DefaultExpr is the transition expression that registers the fallback of a state.
const DefaultExpr = "[:default:]"

// tableSize is the number of characters with explicit entries. Larger characters
// always resolve through the default transition.
const tableSize = 256

// row holds the transitions out of a single state.
type row struct {
	next    [tableSize]State
	def     State
	hasDef  bool
	touched bool // any explicit entry was registered
}

// Table maps (state, character) pairs to destination states.
type Table struct {
	reg  *Registry
	rows []row
}

// NewTable returns an empty table for the states of reg. States allocated after the
// table was created are rejected by SetTransition.
func NewTable(reg *Registry) *Table {
	return &Table{
		reg:  reg,
		rows: make([]row, reg.Len()),
	}
}

// Registry returns the registry the table was built for.
func (t *Table) Registry() *Registry {
	return t.reg
}

// SetTransition registers transitions from -> to for every character described by
// expr. DefaultExpr registers the fallback of from and overwrites every explicit
// entry registered for from so far, so it must come first.
func (t *Table) SetTransition(expr string, from, to State) error {
	if int(from) >= len(t.rows) || from == ErrorState {
		return fmt.Errorf("from %d: %w", from, ErrUnknownState)
	}
	if !t.reg.Has(to) {
		return fmt.Errorf("to %d: %w", to, ErrUnknownState)
	}

	r := &t.rows[from]
	if expr == DefaultExpr {
		for i := range r.next {
			r.next[i] = to
		}
		r.def = to
		r.hasDef = true
		return nil
	}

	chars, err := expandExpr(expr)
	if err != nil {
		return err
	}
	for _, c := range chars {
		r.next[c] = to
	}
	r.touched = true
	return nil
}

// Next returns the destination for c in state from: the explicit entry if one was
// registered, otherwise the default, otherwise ErrorState.
func (t *Table) Next(from State, c rune) State {
	if int(from) >= len(t.rows) {
		return ErrorState
	}
	r := &t.rows[from]
	if c < 0 || c >= tableSize {
		if r.hasDef {
			return r.def
		}
		return ErrorState
	}
	return r.next[c]
}

// expandExpr turns a transition expression into the characters it names. "a-z"
// is an inclusive range; a '-' that does not sit between two characters is literal.
func expandExpr(expr string) ([]byte, error) {
	runes := []rune(expr)
	var out []byte
	for i := 0; i < len(runes); i++ {
		lo, hi := runes[i], runes[i]
		if i+2 < len(runes) && runes[i+1] == '-' {
			hi = runes[i+2]
			i += 2
		}
		if lo < 0 || hi >= tableSize {
			return nil, fmt.Errorf("expression %q: %w", expr, ErrCharOutOfRange)
		}
		for c := lo; c <= hi; c++ {
			out = append(out, byte(c))
		}
	}
	return out, nil
}

// Rule is one line of a declarative transition table.
type Rule struct {
	From State
	Expr string
	To   State
}

// Compile builds a table from rules in a single pass. Unlike SetTransition, a
// DefaultExpr rule that follows explicit rules for the same state is an error rather
// than a silent overwrite.
func Compile(reg *Registry, rules []Rule) (*Table, error) {
	t := NewTable(reg)
	for i, rule := range rules {
		if rule.Expr == DefaultExpr && int(rule.From) < len(t.rows) && t.rows[rule.From].touched {
			return nil, fmt.Errorf("%s: rule %d (%s): %w",
				reg.Namespace(), i, reg.Name(rule.From), ErrDefaultAfterExplicit)
		}
		if err := t.SetTransition(rule.Expr, rule.From, rule.To); err != nil {
			return nil, fmt.Errorf("%s: rule %d: %w", reg.Namespace(), i, err)
		}
	}
	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(reg *Registry, rules []Rule) *Table {
	t, err := Compile(reg, rules)
	if err != nil {
		panic(err)
	}
	return t
}

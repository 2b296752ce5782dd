package statemachine

import (
	"fmt"
	"unicode/utf8"
)

// External is the coarse, caller-visible classification of internal states.
type External interface {
	comparable
	String() string
}

// Grammar is the immutable definition of an automaton: its states, transitions,
// external mapping and initial state. A Grammar is shared by every Machine running it.
type Grammar[E External] struct {
	reg      *Registry
	table    *Table
	external []E
	initial  State
}

// NewGrammar validates that every state of the table's registry, ErrorState
// included, has an external mapping.
func NewGrammar[E External](table *Table, external map[State]E, initial State) (*Grammar[E], error) {
	reg := table.Registry()
	g := &Grammar[E]{
		reg:      reg,
		table:    table,
		external: make([]E, reg.Len()),
		initial:  initial,
	}
	for s := 0; s < reg.Len(); s++ {
		e, ok := external[State(s)]
		if !ok {
			return nil, fmt.Errorf("%s: state %s has no external mapping", reg.Namespace(), reg.Name(State(s)))
		}
		g.external[s] = e
	}
	if initial == ErrorState || !reg.Has(initial) {
		return nil, fmt.Errorf("%s: initial state %d: %w", reg.Namespace(), initial, ErrUnknownState)
	}
	return g, nil
}

// MustGrammar is like NewGrammar but panics on error.
func MustGrammar[E External](table *Table, external map[State]E, initial State) *Grammar[E] {
	g, err := NewGrammar(table, external, initial)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Grammar[E]) Initial() State { return g.initial }

func (g *Grammar[E]) Name(s State) string { return g.reg.Name(s) }

// External returns the external state s maps to.
func (g *Grammar[E]) External(s State) E {
	return g.external[s]
}

// StepFunc is the per-grammar transition hook. It is called once per consumed
// character with the current state and the destination chosen by the table, and
// returns the final destination. Implementations run, in this order: the exit hook
// of from and the enter hook of to (both only when from != to, each may redirect),
// then, unless silent, the in-state hook of the destination and the recorders.
type StepFunc func(from, to State, c rune, silent bool) State

// Machine is the mutable cursor that drives a Grammar one character at a time.
// It is not safe for concurrent use; use Clone to fork independent parses.
type Machine[E External] struct {
	grammar *Grammar[E]
	step    StepFunc
	state   State
	line    int
	column  int
}

// NewMachine returns a machine positioned at the grammar's initial state. step may
// be nil for grammars without hooks.
func NewMachine[E External](g *Grammar[E], step StepFunc) *Machine[E] {
	m := &Machine[E]{grammar: g, step: step}
	m.Reset()
	return m
}

// Reset returns the machine to the initial state and position 1:1.
func (m *Machine[E]) Reset() {
	m.state = m.grammar.initial
	m.line = 1
	m.column = 1
}

// Parse consumes one character.
func (m *Machine[E]) Parse(c rune) error {
	next := m.grammar.table.Next(m.state, c)
	if next == ErrorState {
		err := &ParseError{
			Char:     c,
			State:    m.grammar.Name(m.state),
			External: m.grammar.External(m.state).String(),
			Line:     m.line,
			Column:   m.column,
		}
		m.state = ErrorState
		return err
	}

	if m.step != nil {
		next = m.step(m.state, next, c, false)
	}
	m.state = next

	if c == '\n' {
		m.line++
		m.column = 1
	} else {
		m.column++
	}
	return nil
}

// ParseString feeds s rune by rune and stops at the first error.
func (m *Machine[E]) ParseString(s string) error {
	for len(s) > 0 {
		c, size := utf8.DecodeRuneInString(s)
		if err := m.Parse(c); err != nil {
			return err
		}
		s = s[size:]
	}
	return nil
}

// SetNextState moves the machine to next without consuming a character. The exit
// and enter hooks run with c == 0; position counters, in-state hooks and recorders
// are left untouched.
func (m *Machine[E]) SetNextState(next State) {
	if m.step != nil && m.state != next {
		next = m.step(m.state, next, 0, true)
	}
	m.state = next
}

// Jump sets the current state without running any hook.
func (m *Machine[E]) Jump(s State) {
	m.state = s
}

func (m *Machine[E]) Current() State { return m.state }

func (m *Machine[E]) External() E { return m.grammar.External(m.state) }

func (m *Machine[E]) Grammar() *Grammar[E] { return m.grammar }

func (m *Machine[E]) Line() int { return m.line }

func (m *Machine[E]) SetLine(line int) { m.line = line }

func (m *Machine[E]) Column() int { return m.column }

func (m *Machine[E]) SetColumn(column int) { m.column = column }

// Clone copies the cursor. The grammar is shared and step is replaced, since the
// original step is usually bound to the parser that owns m.
func (m *Machine[E]) Clone(step StepFunc) *Machine[E] {
	c := *m
	c.step = step
	return &c
}

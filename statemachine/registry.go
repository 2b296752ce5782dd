// Package statemachine implements the table-driven automaton shared by the HTML and
// JavaScript context parsers: a per-grammar state registry, a dense transition table,
// text recorders and the character-at-a-time driver.
package statemachine

import (
	"errors"
	"fmt"
)

// State identifies an internal state of one grammar. Identifiers are only unique
// within the Registry that allocated them, except for ErrorState which is shared.
type State uint8

// ErrorState is the sentinel shared by every grammar. No transitions leave it.
const ErrorState State = 0

// MaxStates is the number of states a single registry can hold, excluding ErrorState.
const MaxStates = 255

var (
	ErrTooManyStates        = errors.New("too many states")
	ErrUnknownState         = errors.New("unknown state")
	ErrDefaultAfterExplicit = errors.New("default transition declared after explicit transitions")
	ErrCharOutOfRange       = errors.New("character out of table range")
)

// Registry allocates state identifiers for one grammar namespace.
type Registry struct {
	namespace string
	names     []string // names[0] is the error state
}

// NewRegistry creates an empty registry for the given namespace.
func NewRegistry(namespace string) *Registry {
	return &Registry{
		namespace: namespace,
		names:     []string{"ERROR"},
	}
}

// Namespace returns the name the registry was created with.
func (r *Registry) Namespace() string {
	return r.namespace
}

// Allocate returns a new state with the next identifier, starting at 1.
func (r *Registry) Allocate(name string) (State, error) {
	id := len(r.names)
	if id > MaxStates {
		return ErrorState, fmt.Errorf("%s: allocate %q: %w", r.namespace, name, ErrTooManyStates)
	}
	r.names = append(r.names, name)
	return State(id), nil
}

// MustAllocate is like Allocate but panics on error. It is meant for grammar
// construction at package initialization.
func (r *Registry) MustAllocate(name string) State {
	s, err := r.Allocate(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Declare registers names for states that a grammar enumerates as constants. The
// constants must start at 1 and be listed in declaration order; a mismatch panics.
func (r *Registry) Declare(states map[State]string) {
	for i := 1; i <= len(states); i++ {
		name, ok := states[State(i)]
		if !ok {
			panic(fmt.Sprintf("%s: state %d has no name", r.namespace, i))
		}
		if s := r.MustAllocate(name); s != State(i) {
			panic(fmt.Sprintf("%s: state %q allocated as %d, declared as %d", r.namespace, name, s, i))
		}
	}
}

// Len returns the number of allocated states, including ErrorState.
func (r *Registry) Len() int {
	return len(r.names)
}

// Has reports whether s was allocated by r. ErrorState always belongs to r.
func (r *Registry) Has(s State) bool {
	return int(s) < len(r.names)
}

// Name returns the diagnostic name of s.
func (r *Registry) Name(s State) string {
	if !r.Has(s) {
		return fmt.Sprintf("%s(%d)", r.namespace, s)
	}
	return r.names[s]
}

// Package jsparser tracks the lexical context of JavaScript source one character at a
// time: plain code, string literals, regular expression literals and comments.
//
// The parser does not build tokens. It keeps just enough trailing context to decide
// whether a '/' starts a regular expression or is a division operator, which is the
// only ambiguity of JavaScript lexing that matters for escaping.
package jsparser

import (
	"sort"

	sm "github.com/dpotapov/go-streamhtml/statemachine"
)

// regexpPrefixes are the keywords after which a '/' opens a regular expression.
// Sorted for binary search.
var regexpPrefixes = []string{
	"abstract", "break", "case", "catch", "class", "const", "continue", "debugger",
	"default", "delete", "do", "else", "enum", "eval", "export", "extends", "field",
	"final", "finally", "for", "function", "goto", "if", "implements", "import", "in",
	"instanceof", "native", "new", "package", "private", "protected", "public",
	"return", "static", "switch", "synchronized", "throw", "throws", "transient",
	"try", "typeof", "var", "void", "volatile", "while", "with",
}

// Parser is a streaming JavaScript context parser. The zero value is not usable;
// create parsers with New.
type Parser struct {
	m   *sm.Machine[State]
	buf ringBuffer
}

// New returns a parser positioned at the start of a script.
func New() *Parser {
	p := &Parser{}
	p.m = sm.NewMachine(grammar, p.step)
	return p
}

// Parse consumes one character. After an error the parser stays in StateError
// until Reset.
func (p *Parser) Parse(c rune) error {
	return p.m.Parse(c)
}

// ParseString feeds s one rune at a time.
func (p *Parser) ParseString(s string) error {
	return p.m.ParseString(s)
}

// State returns the current external state.
func (p *Parser) State() State {
	return p.m.External()
}

// InsertValue tells the parser that a value is substituted at the current position.
// In code the value is an operand, so a '/' right after it divides. Inside literals
// and comments it changes nothing.
func (p *Parser) InsertValue() {
	if p.State() != StateText {
		return
	}
	p.m.Jump(stateText)
	p.buf.append('0')
}

// InternalState returns the name of the current internal state, for diagnostics.
func (p *Parser) InternalState() string {
	return grammar.Name(p.m.Current())
}

// Reset returns the parser to the start of a script.
func (p *Parser) Reset() {
	p.m.Reset()
	p.buf.reset()
}

func (p *Parser) Line() int { return p.m.Line() }
func (p *Parser) SetLine(line int) { p.m.SetLine(line) }
func (p *Parser) Column() int { return p.m.Column() }
func (p *Parser) SetColumn(col int) { p.m.SetColumn(col) }

// Clone returns an independent copy sharing only the immutable grammar.
func (p *Parser) Clone() *Parser {
	c := &Parser{buf: p.buf}
	c.m = p.m.Clone(c.step)
	return c
}

func (p *Parser) step(from, to sm.State, c rune, silent bool) sm.State {
	if from != to {
		to = p.enterState(to)
	}
	if silent {
		return to
	}
	if to == stateText {
		p.buf.append(c)
	}
	return to
}

func (p *Parser) enterState(to sm.State) sm.State {
	switch to {
	case stateSlash:
		if p.slashOpensRegExp() {
			to = stateRegExpSlash
		}
		p.buf.append('/')
	case stateComAfter:
		// The '/' that opened the comment stands in for the whole comment: drop it if
		// whitespace already separates the surrounding code, otherwise make it one.
		if isWhitespace(p.buf.get(-2)) {
			p.buf.pop()
		} else {
			p.buf.set(-1, ' ')
		}
	}
	return to
}

// slashOpensRegExp decides whether a '/' seen in code context starts a regular
// expression literal, by looking at the code preceding it.
func (p *Parser) slashOpensRegExp() bool {
	pos := -1
	if isWhitespace(p.buf.get(pos)) {
		pos--
	}

	switch p.buf.get(pos) {
	case '+':
		// "a++ / b" divides; "a + /re/" does not.
		return p.buf.get(pos-1) != '+'
	case '-':
		return p.buf.get(pos-1) != '-'
	case '=', '<', '>', '&', '|', '!', '%', '*', '/', ',', ';', '?', ':', '^', '~',
		'{', '(', '[', '}', 0:
		return true
	}

	ident := p.buf.lastIdentifier()
	if ident == "" {
		return false
	}
	i := sort.SearchStrings(regexpPrefixes, ident)
	return i < len(regexpPrefixes) && regexpPrefixes[i] == ident
}

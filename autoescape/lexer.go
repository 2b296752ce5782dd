package autoescape

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	eof        rune = -1
	leftDelim       = "${"
	rightDelim      = "}"
)

var (
	// ErrUnclosedAction is reported for a "${" without its matching "}".
	ErrUnclosedAction = errors.New("unclosed action")
	// ErrEmptyAction is reported for "${}".
	ErrEmptyAction = errors.New("empty action")
)

// Lexer in the style of https://go.dev/talks/2011/lex.slide

type itemType int

const (
	itemError itemType = iota
	itemEOF
	itemText
	itemExpr
)

type item struct {
	typ itemType
	val string
	pos int // byte offset of val in the input
	err error
}

// lexer holds the state of the scanner.
type lexer struct {
	input       string // the string being scanned
	start       int    // start position of this item
	pos         int    // current position in the input
	width       int    // width of last rune read from input
	bracesDepth int    // nesting depth of braces {}
	items       []item
}

// stateFn represents the state of the scanner as a function that returns the next
// state.
type stateFn func(*lexer) stateFn

// lex splits s into text and expression items. The last item is either itemEOF or
// itemError.
func lex(s string) []item {
	l := &lexer{input: s}
	for state := lexText; state != nil; {
		state = state(l)
	}
	return l.items
}

func (l *lexer) emit(t itemType) {
	l.items = append(l.items, item{typ: t, val: l.input[l.start:l.pos], pos: l.start})
	l.start = l.pos
}

// errorf emits an error item positioned at the "${" of the current action and stops
// the scan.
func (l *lexer) errorf(err error, format string, args ...any) stateFn {
	if format != "" {
		err = fmt.Errorf("%w: "+format, append([]any{err}, args...)...)
	}
	l.items = append(l.items, item{typ: itemError, pos: l.start - len(leftDelim), err: err})
	return nil
}

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

// ignore skips over the pending input before this point.
func (l *lexer) ignore() {
	l.start = l.pos
}

// scanString consumes a quoted string inside an action. It reports false if the
// string is not terminated; only backquoted strings may span lines.
func (l *lexer) scanString(quote rune) bool {
	for ch := l.next(); ch != quote; ch = l.next() {
		if ch == eof || ch == '\n' && quote != '`' {
			return false
		}
		if ch == '\\' && quote != '`' {
			l.next()
		}
	}
	return true
}

func (l *lexer) atRightDelim() bool {
	return l.bracesDepth == 0 && strings.HasPrefix(l.input[l.pos:], rightDelim)
}

func lexText(l *lexer) stateFn {
	if x := strings.Index(l.input[l.pos:], leftDelim); x >= 0 {
		if x > 0 {
			l.pos += x
			l.emit(itemText)
		}
		return lexLeftDelim
	}
	l.pos = len(l.input)
	if l.pos > l.start {
		l.emit(itemText)
	}
	l.emit(itemEOF)
	return nil
}

func lexLeftDelim(l *lexer) stateFn {
	l.pos += len(leftDelim)
	l.ignore()
	l.bracesDepth = 0
	return lexExpr
}

func lexRightDelim(l *lexer) stateFn {
	l.pos += len(rightDelim)
	l.ignore()
	return lexText
}

func lexExpr(l *lexer) stateFn {
	if l.atRightDelim() {
		if strings.TrimSpace(l.input[l.start:l.pos]) == "" {
			return l.errorf(ErrEmptyAction, "")
		}
		l.emit(itemExpr)
		return lexRightDelim
	}
	switch r := l.next(); {
	case r == eof:
		return l.errorf(ErrUnclosedAction, "")
	case r == '\'' || r == '"' || r == '`':
		if !l.scanString(r) {
			return l.errorf(ErrUnclosedAction, "unterminated string")
		}
	case r == '{':
		l.bracesDepth++
	case r == '}':
		l.bracesDepth--
	}
	return lexExpr
}

// position converts a byte offset in s to a 1-based line and rune column.
func position(s string, off int) (line, col int) {
	return advance(1, 1, s[:off])
}

// advance returns the position reached after reading s from line:col.
func advance(line, col int, s string) (int, int) {
	for _, r := range s {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

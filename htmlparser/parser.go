// Package htmlparser is a streaming HTML context parser. It is fed a document one
// character at a time and can report, between any two characters, where in the markup
// the next character would land: text, tag, attribute name or value, comment, and
// within JavaScript or CSS.
//
// The parser is a lexer, not a tree builder. It is meant for escaping engines that
// need to know the context of a substitution point, so it never fails on malformed
// markup; the only error it can return comes from a state with no transition.
//
// Script blocks and javascript-bearing attributes are tracked with a nested
// jsparser.Parser. Character references in attribute values are decoded before they
// reach it, so onclick="a=&quot;x" leaves the script inside a string literal.
package htmlparser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/dpotapov/go-streamhtml/jsparser"
	sm "github.com/dpotapov/go-streamhtml/statemachine"
)

// Mode selects the kind of content the parser starts in.
type Mode int

const (
	// ModeHTML parses a document or fragment from text context.
	ModeHTML Mode = iota
	// ModeJS parses a standalone script.
	ModeJS
	// ModeCSS parses a standalone stylesheet.
	ModeCSS
	// ModeHTMLInTag parses the inside of a tag, as in `<a {{.attrs}}>`.
	ModeHTMLInTag
)

func (m Mode) String() string {
	switch m {
	case ModeHTML:
		return "html"
	case ModeJS:
		return "js"
	case ModeCSS:
		return "css"
	case ModeHTMLInTag:
		return "tag"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "html", "":
		return ModeHTML, nil
	case "js", "javascript":
		return ModeJS, nil
	case "css":
		return ModeCSS, nil
	case "tag", "html-in-tag":
		return ModeHTMLInTag, nil
	}
	return 0, fmt.Errorf("unknown parser mode %q", s)
}

// Parser is a streaming HTML context parser. Create parsers with New; the zero value
// is not usable. A Parser is not safe for concurrent use; Clone it instead.
type Parser struct {
	m  *sm.Machine[State]
	js *jsparser.Parser

	tag      sm.Recorder
	attr     sm.Recorder
	value    sm.Recorder
	closeTag sm.Recorder

	entity entityFilter

	inJS       bool
	valueIndex int
	// set by InsertText when a substitution begins a URL attribute value.
	urlStartInserted bool
}

// New returns a parser in ModeHTML.
func New() *Parser {
	p := &Parser{js: jsparser.New()}
	p.m = sm.NewMachine(grammar, p.step)
	return p
}

// Parse consumes one character.
func (p *Parser) Parse(c rune) error {
	return p.m.Parse(c)
}

// ParseString feeds s one rune at a time, stopping at the first error.
func (p *Parser) ParseString(s string) error {
	return p.m.ParseString(s)
}

// State returns the current external state.
func (p *Parser) State() State {
	return p.m.External()
}

// InternalState returns the name of the current internal state, for diagnostics.
func (p *Parser) InternalState() string {
	return grammar.Name(p.m.Current())
}

// Reset returns the parser to the start of an HTML document.
func (p *Parser) Reset() {
	p.m.Reset()
	p.js.Reset()
	p.tag.Reset()
	p.attr.Reset()
	p.value.Reset()
	p.closeTag.Reset()
	p.entity.reset()
	p.inJS = false
	p.valueIndex = 0
	p.urlStartInserted = false
}

// ResetMode resets the parser and places it at the start of content of the given kind.
func (p *Parser) ResetMode(mode Mode) error {
	p.Reset()
	switch mode {
	case ModeHTML:
	case ModeJS:
		p.m.Jump(stateJSFile)
		p.inJS = true
	case ModeCSS:
		p.m.Jump(stateCSSFile)
	case ModeHTMLInTag:
		p.m.Jump(stateTagSpace)
	default:
		return fmt.Errorf("unknown parser mode %d", int(mode))
	}
	return nil
}

func (p *Parser) Line() int { return p.m.Line() }

func (p *Parser) SetLine(line int) { p.m.SetLine(line) }

func (p *Parser) Column() int { return p.m.Column() }

func (p *Parser) SetColumn(col int) { p.m.SetColumn(col) }

// Tag returns the lower-cased name of the current or most recent opening tag. It is
// empty after a closing tag.
func (p *Parser) Tag() string {
	return strings.ToLower(p.tag.Content())
}

// Attribute returns the lower-cased name of the current attribute, or "" outside of
// attributes.
func (p *Parser) Attribute() string {
	if !p.InAttribute() {
		return ""
	}
	return strings.ToLower(p.attr.Content())
}

// Value returns the attribute value seen so far, or "" outside of values. Quotes are
// not included and character references are left undecoded.
func (p *Parser) Value() string {
	if p.State() != StateValue {
		return ""
	}
	return p.value.Content()
}

// ValueTruncated reports whether the attribute value grew past what Value keeps.
func (p *Parser) ValueTruncated() bool {
	return p.State() == StateValue && p.value.Truncated()
}

// ValueIndex returns the number of value characters consumed in the current attribute
// value, or -1 outside of values.
func (p *Parser) ValueIndex() int {
	if p.State() != StateValue {
		return -1
	}
	return p.valueIndex
}

// InAttribute reports whether the parser is in an attribute name or value.
func (p *Parser) InAttribute() bool {
	s := p.State()
	return s == StateAttr || s == StateValue
}

// IsAttributeQuoted reports whether the current attribute value is quoted.
func (p *Parser) IsAttributeQuoted() bool {
	switch p.m.Current() {
	case stateValueQStart, stateValueQ, stateValueDQStart, stateValueDQ:
		return true
	}
	return false
}

// AttributeType classifies the current attribute.
func (p *Parser) AttributeType() AttrType {
	if !p.InAttribute() {
		return AttrNone
	}
	return classifyAttribute(p.Tag(), p.Attribute(), p.value.Content())
}

// InJavascript reports whether the next character would be part of a script: a
// <script> body, a javascript-bearing attribute value or a ModeJS document.
func (p *Parser) InJavascript() bool {
	if !p.inJS {
		return false
	}
	s := p.m.Current()
	return isValueState(s) || isCdataState(s) || s == stateJSFile
}

// IsJavascriptQuoted reports whether the script is inside a string literal.
func (p *Parser) IsJavascriptQuoted() bool {
	if !p.InJavascript() {
		return false
	}
	s := p.js.State()
	return s == jsparser.StateQ || s == jsparser.StateDQ
}

// JavascriptState returns the state of the nested JavaScript parser. It is only
// meaningful while InJavascript is true.
func (p *Parser) JavascriptState() jsparser.State {
	return p.js.State()
}

// InCSS reports whether the next character would be part of a stylesheet: a <style>
// body, a style attribute or a ModeCSS document.
func (p *Parser) InCSS() bool {
	return p.m.Current() == stateCSSFile ||
		p.AttributeType() == AttrStyle ||
		p.Tag() == atom.Style.String()
}

// IsURLStart reports whether the next character would be the first character of a
// URL: the start of a URI attribute value, or the point right after "url=" in a
// <meta content> refresh directive.
func (p *Parser) IsURLStart() bool {
	if p.State() != StateValue || p.urlStartInserted {
		return false
	}
	if p.AttributeType() != AttrURI {
		return false
	}
	if p.Tag() == atom.Meta.String() && p.Attribute() == "content" {
		return parseMetaRedirect(p.value.Content()) == metaRedirectURLStart
	}
	return p.valueIndex == 0
}

// InsertText tells the parser that text is being substituted at the current position.
// The text itself is not parsed. An unquoted attribute value that has not started yet
// is considered started, and a URL start stops being one. In script the text counts
// as an operand (see jsparser.Parser.InsertValue).
func (p *Parser) InsertText() {
	if p.IsURLStart() {
		p.urlStartInserted = true
	}
	if p.InJavascript() {
		p.js.InsertValue()
	}
	if p.m.Current() == stateValue {
		p.m.SetNextState(stateValueText)
	}
}

// Clone returns an independent copy of the parser, nested JavaScript parser
// included. Only the immutable grammars are shared.
func (p *Parser) Clone() *Parser {
	c := &Parser{
		js:               p.js.Clone(),
		tag:              p.tag.Clone(),
		attr:             p.attr.Clone(),
		value:            p.value.Clone(),
		closeTag:         p.closeTag.Clone(),
		entity:           p.entity,
		inJS:             p.inJS,
		valueIndex:       p.valueIndex,
		urlStartInserted: p.urlStartInserted,
	}
	c.m = p.m.Clone(c.step)
	return c
}

func (p *Parser) step(from, to sm.State, c rune, silent bool) sm.State {
	if from != to {
		to = p.exitState(from, to, c)
	}
	if from != to {
		to = p.enterState(to)
	}
	if silent {
		return to
	}
	p.inState(from, to, c)

	p.tag.MaybeRecord(c)
	p.attr.MaybeRecord(c)
	p.value.MaybeRecord(c)
	p.closeTag.MaybeRecord(c)
	return to
}

func (p *Parser) exitState(from, to sm.State, c rune) sm.State {
	switch {
	case from == stateTagName:
		p.tag.Stop()
		if strings.HasPrefix(p.tag.Content(), "/") {
			p.tag.Reset()
		}
	case from == stateAttr:
		p.attr.Stop()
	case from == stateCdataMayClose:
		to = p.exitCdataMayClose(to, c)
	case isValueState(from) && !isValueState(to):
		p.value.Stop()
		p.inJS = false
	}
	return to
}

// exitCdataMayClose checks whether "</name" just read closes the raw text element
// the parser is in. Anything else is part of the element's content.
func (p *Parser) exitCdataMayClose(to sm.State, c rune) sm.State {
	p.closeTag.Stop()
	name := strings.TrimPrefix(p.closeTag.Content(), "/")
	if !strings.EqualFold(name, p.tag.Content()) {
		return to
	}
	switch {
	case c == '>':
		to = stateTagClose
	case isHTMLSpace(c):
		to = stateTagSpace
	default:
		return to
	}
	p.tag.Reset()
	p.inJS = false
	return to
}

func (p *Parser) enterState(to sm.State) sm.State {
	switch to {
	case stateTagName:
		p.tag.Start()
	case stateAttr:
		p.attr.Start()
	case stateTagClose:
		to = p.enterTagClose()
	case stateCdataMayClose:
		p.closeTag.Start()
	case stateValue:
		p.value.Reset()
		p.valueIndex = 0
		p.urlStartInserted = false
		p.inJS = false
		if classifyAttribute(p.Tag(), p.Attribute(), "") == AttrJS {
			p.js.Reset()
			p.entity.reset()
			p.inJS = true
		}
	case stateValueText, stateValueQ, stateValueDQ:
		p.value.Start()
	}
	return to
}

// enterTagClose switches to raw text parsing after the opening tag of an element
// whose content is not markup.
func (p *Parser) enterTagClose() sm.State {
	p.inJS = false
	switch atom.Lookup([]byte(p.Tag())) {
	case atom.Script:
		p.js.Reset()
		p.inJS = true
		return stateCdataText
	case atom.Style, atom.Title, atom.Textarea:
		return stateCdataText
	}
	return stateTagClose
}

func (p *Parser) inState(from, to sm.State, c rune) {
	switch {
	case isValueContentState(to):
		p.valueIndex++
		if p.inJS {
			// js states all have default transitions, Parse cannot fail.
			_ = p.js.ParseString(p.entity.process(c))
		}
	case isCdataState(to) || to == stateJSFile:
		// The '>' closing <script> is markup, not script.
		if p.inJS && (isCdataState(from) || from == stateJSFile) {
			// Same as above: every js state has a default transition.
			_ = p.js.Parse(c)
		}
	}
}

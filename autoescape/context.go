package autoescape

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/dpotapov/go-streamhtml/htmlparser"
	"github.com/dpotapov/go-streamhtml/jsparser"
)

// Context is the escaping context of a placeholder, decided by where it appears in
// the surrounding markup.
type Context int

const (
	ContextHTML Context = iota
	ContextAttr
	ContextAttrUnquoted
	// ContextURL is the start of a URL attribute value. The scheme is checked.
	ContextURL
	// ContextURLPath is a URL attribute value after its start, before any '?' or '#'.
	ContextURLPath
	// ContextURLPart is a URL attribute value in the query or fragment.
	ContextURLPart
	ContextJSString
	ContextJS
	ContextCSS
	ContextComment
	// ContextError marks positions no escaper can make safe, such as a tag name or a
	// regular expression literal. Templates with such placeholders fail to parse.
	ContextError
)

func (c Context) String() string {
	switch c {
	case ContextHTML:
		return "html"
	case ContextAttr:
		return "attr"
	case ContextAttrUnquoted:
		return "attr-unquoted"
	case ContextURL:
		return "url"
	case ContextURLPath:
		return "url-path"
	case ContextURLPart:
		return "url-part"
	case ContextJSString:
		return "js-string"
	case ContextJS:
		return "js"
	case ContextCSS:
		return "css"
	case ContextComment:
		return "comment"
	}
	return "error"
}

// contextOf classifies the position the parser is at. It must be called before
// the parser is told about the insertion.
func contextOf(p *htmlparser.Parser) Context {
	switch p.State() {
	case htmlparser.StateText:
		switch {
		case p.InJavascript():
			return jsContext(p.JavascriptState())
		case p.InCSS():
			return ContextCSS
		}
		return ContextHTML
	case htmlparser.StateValue:
		switch {
		case p.InJavascript():
			return jsContext(p.JavascriptState())
		case p.IsURLStart():
			return ContextURL
		}
		switch p.AttributeType() {
		case htmlparser.AttrURI:
			if p.ValueTruncated() || strings.ContainsAny(html.UnescapeString(p.Value()), "?#") {
				return ContextURLPart
			}
			return ContextURLPath
		case htmlparser.AttrStyle:
			return ContextCSS
		}
		if !p.IsAttributeQuoted() {
			return ContextAttrUnquoted
		}
		return ContextAttr
	case htmlparser.StateComment:
		return ContextComment
	case htmlparser.StateJSFile:
		return jsContext(p.JavascriptState())
	case htmlparser.StateCSSFile:
		return ContextCSS
	}
	return ContextError
}

func jsContext(s jsparser.State) Context {
	switch s {
	case jsparser.StateText:
		return ContextJS
	case jsparser.StateQ, jsparser.StateDQ:
		return ContextJSString
	}
	return ContextError
}

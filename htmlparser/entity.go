package htmlparser

import (
	"golang.org/x/net/html"
)

// maxEntitySize bounds the characters buffered between '&' and ';'.
const maxEntitySize = 10

// entityFilter decodes HTML character references on the way from an attribute value
// to the JavaScript parser. Text that does not turn out to be a reference is
// released unchanged.
type entityFilter struct {
	pending string
}

func (f *entityFilter) reset() {
	f.pending = ""
}

// process consumes c and returns the text that is ready to be forwarded, which may be
// empty while a reference is being collected.
func (f *entityFilter) process(c rune) string {
	if f.pending == "" {
		if c == '&' {
			f.pending = "&"
			return ""
		}
		return string(c)
	}

	switch {
	case c == ';':
		out := html.UnescapeString(f.pending + ";")
		f.pending = ""
		return out
	case c == '&':
		out := f.pending
		f.pending = "&"
		return out
	case len(f.pending) < maxEntitySize && isEntityChar(c):
		f.pending += string(c)
		return ""
	}
	out := f.pending + string(c)
	f.pending = ""
	return out
}

func isEntityChar(c rune) bool {
	return c == '#' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

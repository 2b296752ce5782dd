package htmlparser

import (
	"strings"
)

// AttrType classifies the attribute the parser is in.
type AttrType int

const (
	AttrNone AttrType = iota
	AttrRegular
	AttrURI
	AttrJS
	AttrStyle
)

func (t AttrType) String() string {
	switch t {
	case AttrNone:
		return "NONE"
	case AttrRegular:
		return "REGULAR"
	case AttrURI:
		return "URI"
	case AttrJS:
		return "JS"
	case AttrStyle:
		return "STYLE"
	}
	return "UNKNOWN"
}

// uriAttributes hold URLs in some element, matched against the local name.
var uriAttributes = map[string]bool{
	"action":     true,
	"archive":    true,
	"background": true,
	"cite":       true,
	"classid":    true,
	"codebase":   true,
	"data":       true,
	"dynsrc":     true,
	"formaction": true,
	"href":       true,
	"icon":       true,
	"longdesc":   true,
	"lowsrc":     true,
	"manifest":   true,
	"poster":     true,
	"profile":    true,
	"src":        true,
	"usemap":     true,
	"xmlns":      true,
}

// isURIAttribute reports attributes holding a URL. Namespaced names such as
// "xlink:href" are classified by their local part; all xmlns declarations are URIs.
func isURIAttribute(attr string) bool {
	if strings.HasPrefix(attr, "xmlns") {
		return true
	}
	if i := strings.LastIndexByte(attr, ':'); i >= 0 {
		attr = attr[i+1:]
	}
	return uriAttributes[attr]
}

// classifyAttribute expects lower-cased tag and attribute names. value is only
// consulted for <meta content>, whose type depends on what was seen so far.
func classifyAttribute(tag, attr, value string) AttrType {
	switch {
	case strings.HasPrefix(attr, "on"):
		return AttrJS
	case isURIAttribute(attr):
		return AttrURI
	case attr == "style":
		return AttrStyle
	case tag == "meta" && attr == "content" && parseMetaRedirect(value) != metaRedirectNone:
		return AttrURI
	}
	return AttrRegular
}

type metaRedirect int

const (
	metaRedirectNone metaRedirect = iota
	// The value ends right after "url=": a URL starts at the next character.
	metaRedirectURLStart
	// The value already holds part of the URL.
	metaRedirectURL
)

// parseMetaRedirect looks for the URL of a refresh directive in a (possibly partial)
// <meta content> value:
//
//	[space] [delay] [space] [; or ,] [space] url [space] = [space] URL
//
// The delay is digits and dots. Matching of "url" is case-insensitive.
func parseMetaRedirect(v string) metaRedirect {
	i := skipSpace(v, 0)
	for i < len(v) && (v[i] >= '0' && v[i] <= '9' || v[i] == '.') {
		i++
	}
	i = skipSpace(v, i)
	if i < len(v) && (v[i] == ';' || v[i] == ',') {
		i++
	}
	i = skipSpace(v, i)

	if len(v)-i < 3 || !strings.EqualFold(v[i:i+3], "url") {
		return metaRedirectNone
	}
	i = skipSpace(v, i+3)
	if i >= len(v) || v[i] != '=' {
		return metaRedirectNone
	}
	i = skipSpace(v, i+1)
	if i == len(v) {
		return metaRedirectURLStart
	}
	return metaRedirectURL
}

func skipSpace(s string, i int) int {
	for i < len(s) && isHTMLSpace(rune(s[i])) {
		i++
	}
	return i
}

package autoescape

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// HTML is markup from a trusted source. It is emitted verbatim in text context and
// escaped like any other string everywhere else.
type HTML string

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case HTML:
		return string(v)
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

// escapeValue encodes v for ctx. The result still has to be encoded for the
// attribute it lands in, if any.
func escapeValue(ctx Context, v any) (string, error) {
	switch ctx {
	case ContextHTML:
		if h, ok := v.(HTML); ok {
			return string(h), nil
		}
		return html.EscapeString(stringify(v)), nil
	case ContextAttr, ContextAttrUnquoted:
		return stringify(v), nil
	case ContextURL:
		return filterURL(stringify(v)), nil
	case ContextURLPath:
		return url.PathEscape(stringify(v)), nil
	case ContextURLPart:
		return url.QueryEscape(stringify(v)), nil
	case ContextJSString:
		return escapeJSString(stringify(v)), nil
	case ContextJS:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode %T as javascript: %w", v, err)
		}
		return string(b), nil
	case ContextCSS:
		return filterCSS(stringify(v)), nil
	case ContextComment:
		return escapeComment(stringify(v)), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsafeContext, ctx)
}

// escapeUnquoted encodes s for an unquoted attribute value, where whitespace and a
// few more characters would end the value.
func escapeUnquoted(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&', '<', '>', '"', '\'', '=', '`', ' ', '\t', '\n', '\r', '\f':
			fmt.Fprintf(&b, "&#%d;", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
}

// filterURL replaces URLs with a scheme outside allowedSchemes by "#" and
// percent-encodes characters that are not valid in a URL.
func filterURL(s string) string {
	if i := strings.IndexAny(s, ":/?#"); i >= 0 && s[i] == ':' {
		if !allowedSchemes[strings.ToLower(s[:i])] {
			return "#"
		}
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURLChar(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// isURLChar reports the unreserved and reserved characters of RFC 3986, plus '%'.
func isURLChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~:/?#[]@!$&'()*+,;=%", c) >= 0
}

func escapeJSString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '/':
			b.WriteString(`\/`)
		case '\'', '"', '<', '>', '&', '=', '`', '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		case utf8.RuneError:
			b.WriteString(`\ufffd`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func isCSSChar(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return true
	}
	return strings.ContainsRune(" #%.,_-", r)
}

// filterCSS keeps only characters that cannot change the structure of a
// stylesheet: enough for colors, lengths and identifiers.
func filterCSS(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isCSSChar(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeComment keeps the comment from being closed.
func escapeComment(s string) string {
	s = html.EscapeString(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	return s
}

package autoescape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/a/b?c=d#e", "/a/b?c=d#e"},
		{"https://x.org/p", "https://x.org/p"},
		{"HTTP://x.org", "HTTP://x.org"},
		{"mailto:a@b.c", "mailto:a@b.c"},
		{"javascript:alert(1)", "#"},
		{"data:text/html,x", "#"},
		{" javascript:x", "#"},
		{"a/b:c", "a/b:c"},
		{"?q=a:b", "?q=a:b"},
		{`/a b"<>`, "/a%20b%22%3C%3E"},
		{"/é", "/%C3%A9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, filterURL(tt.in), tt.in)
	}
}

func TestEscapeJSString(t *testing.T) {
	assert.Equal(t, `a\u0027b\u0022c`, escapeJSString(`a'b"c`))
	assert.Equal(t, `\u003c\/script\u003e`, escapeJSString(`</script>`))
	assert.Equal(t, `\\n\n\t\u0000`, escapeJSString("\\n\n\t\x00"))
	assert.Equal(t, `\u2028é`, escapeJSString("\u2028é"))
}

func TestEscapeUnquoted(t *testing.T) {
	assert.Equal(t, "a&#32;b&#62;&#96;", escapeUnquoted("a b>`"))
}

func TestFilterCSS(t *testing.T) {
	assert.Equal(t, "#fff", filterCSS("#fff"))
	assert.Equal(t, "10px", filterCSS("10px;"))
	assert.Equal(t, "expressionalert1", filterCSS("expression(alert(1))"))
}

func TestEscapeComment(t *testing.T) {
	assert.Equal(t, "a - b", escapeComment("a - b"))
	assert.Equal(t, "- -&gt;", escapeComment("-->"))
	assert.Equal(t, "- - - -", escapeComment("----"))
}

func TestEscapeValue_URL(t *testing.T) {
	tests := []struct {
		ctx  Context
		in   string
		want string
	}{
		{ContextURLPath, "a b/c", "a%20b%2Fc"},
		{ContextURLPath, "a?b#c", "a%3Fb%23c"},
		{ContextURLPart, "a b&c", "a+b%26c"},
		{ContextURLPart, "a=b#c", "a%3Db%23c"},
	}
	for _, tt := range tests {
		got, err := escapeValue(tt.ctx, tt.in)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %q", tt.ctx, tt.in)
	}
}

func TestEscapeValue_Error(t *testing.T) {
	_, err := escapeValue(ContextError, "x")
	assert.ErrorIs(t, err, ErrUnsafeContext)

	_, err = escapeValue(ContextJS, func() {})
	assert.Error(t, err)
}

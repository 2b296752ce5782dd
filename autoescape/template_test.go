package autoescape

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpotapov/go-streamhtml/htmlparser"
)

func TestTemplate_Execute(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]any
		opts []Option
		want string
	}{
		{
			name: "text",
			src:  "<p>${x}</p>",
			vars: map[string]any{"x": "<b>&"},
			want: "<p>&lt;b&gt;&amp;</p>",
		},
		{
			name: "trusted_markup",
			src:  "<p>${raw(x)}</p>",
			vars: map[string]any{"x": "<b>"},
			want: "<p><b></p>",
		},
		{
			name: "trusted_markup_in_attribute",
			src:  `<p title="${raw(x)}">`,
			vars: map[string]any{"x": `<b class="c">`},
			want: `<p title="&lt;b class=&#34;c&#34;&gt;">`,
		},
		{
			name: "quoted_attribute",
			src:  `<p title="${x}">`,
			vars: map[string]any{"x": `a"b'c`},
			want: `<p title="a&#34;b&#39;c">`,
		},
		{
			name: "unquoted_attribute",
			src:  `<p title=${x}>`,
			vars: map[string]any{"x": "a b=c"},
			want: `<p title=a&#32;b&#61;c>`,
		},
		{
			name: "number",
			src:  `<input value=${n}>`,
			vars: map[string]any{"n": 42},
			want: `<input value=42>`,
		},
		{
			name: "expression",
			src:  `<p>${a + 1}</p>`,
			vars: map[string]any{"a": 1},
			want: `<p>2</p>`,
		},
		{
			name: "undefined_variable",
			src:  `<p>${missing}</p>`,
			want: `<p></p>`,
		},
		{
			name: "url_scheme_rejected",
			src:  `<a href="${u}">`,
			vars: map[string]any{"u": "javascript:alert(1)"},
			want: `<a href="#">`,
		},
		{
			name: "url_scheme_rejected_case",
			src:  `<a href=${u}>`,
			vars: map[string]any{"u": "JavaScript:alert(1)"},
			want: `<a href=#>`,
		},
		{
			name: "url_allowed",
			src:  `<a href="${u}">`,
			vars: map[string]any{"u": "https://example.com/a b?q=1&r=2"},
			want: `<a href="https://example.com/a%20b?q=1&amp;r=2">`,
		},
		{
			name: "url_relative",
			src:  `<img src='${u}'>`,
			vars: map[string]any{"u": "/img/a:b.png"},
			want: `<img src='/img/a:b.png'>`,
		},
		{
			name: "url_part",
			src:  `<a href="/search?q=${q}">`,
			vars: map[string]any{"q": "a&b c"},
			want: `<a href="/search?q=a%26b+c">`,
		},
		{
			name: "url_path",
			src:  `<a href="/users/${n}?tab=${t}">`,
			vars: map[string]any{"n": "a b/c?d", "t": "x y"},
			want: `<a href="/users/a%20b%2Fc%3Fd?tab=x+y">`,
		},
		{
			name: "meta_refresh",
			src:  `<meta http-equiv="refresh" content="0; url=${u}">`,
			vars: map[string]any{"u": "javascript:x"},
			want: `<meta http-equiv="refresh" content="0; url=#">`,
		},
		{
			name: "event_handler_string",
			src:  `<a onclick="go('${p}')">`,
			vars: map[string]any{"p": `x'); alert(1)//`},
			want: `<a onclick="go('x\u0027); alert(1)\/\/')">`,
		},
		{
			name: "event_handler_value",
			src:  `<div onclick="f(${v})">`,
			vars: map[string]any{"v": `a"b`},
			want: `<div onclick="f(&#34;a\&#34;b&#34;)">`,
		},
		{
			name: "script_value",
			src:  `<script>var a = ${v};</script>`,
			vars: map[string]any{"v": map[string]any{"k": "</script>"}},
			want: `<script>var a = {"k":"\u003c/script\u003e"};</script>`,
		},
		{
			name: "script_string",
			src:  `<script>var s = "${v}";</script>`,
			vars: map[string]any{"v": `"</script>`},
			want: `<script>var s = "\u0022\u003c\/script\u003e";</script>`,
		},
		{
			name: "script_division_then_string",
			src:  `<script>var a = ${x} / 2; var s = "/"; t = "${y}";</script>`,
			vars: map[string]any{"x": 4, "y": `"+alert(1)+"`},
			want: `<script>var a = 4 / 2; var s = "/"; t = "\u0022+alert(1)+\u0022";</script>`,
		},
		{
			name: "js_mode_division_then_string",
			src:  `var a = ${x} / 2; var s = "${y}";`,
			vars: map[string]any{"x": 4, "y": `"`},
			opts: []Option{WithMode(htmlparser.ModeJS)},
			want: `var a = 4 / 2; var s = "\u0022";`,
		},
		{
			name: "script_nil",
			src:  `<script>var a = ${v};</script>`,
			want: `<script>var a = null;</script>`,
		},
		{
			name: "style_attribute",
			src:  `<p style="color: ${c}">`,
			vars: map[string]any{"c": "red; background: url(x)"},
			want: `<p style="color: red background urlx">`,
		},
		{
			name: "style_block",
			src:  `<style>p { color: ${c} }</style>`,
			vars: map[string]any{"c": "blue}"},
			want: `<style>p { color: blue }</style>`,
		},
		{
			name: "comment",
			src:  `<!-- ${c} -->`,
			vars: map[string]any{"c": "--->"},
			want: `<!-- - - -&gt; -->`,
		},
		{
			name: "title",
			src:  `<title>${t}</title>`,
			vars: map[string]any{"t": "</title><script>"},
			want: `<title>&lt;/title&gt;&lt;script&gt;</title>`,
		},
		{
			name: "js_mode",
			src:  `var x = ${v}; var y = '${s}';`,
			vars: map[string]any{"v": []int{1, 2}, "s": "it's"},
			opts: []Option{WithMode(htmlparser.ModeJS)},
			want: `var x = [1,2]; var y = 'it\u0027s';`,
		},
		{
			name: "css_mode",
			src:  `a { color: ${c} }`,
			vars: map[string]any{"c": "red;}"},
			opts: []Option{WithMode(htmlparser.ModeCSS)},
			want: `a { color: red }`,
		},
		{
			name: "in_tag_mode",
			src:  `href="${u}" title=${t}`,
			vars: map[string]any{"u": "javascript:", "t": "a b"},
			opts: []Option{WithMode(htmlparser.ModeHTMLInTag)},
			want: `href="#" title=a&#32;b`,
		},
		{
			name: "braces_and_strings_in_action",
			src:  `<p>${"}" + x}</p>`,
			vars: map[string]any{"x": "{"},
			want: `<p>}{</p>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.name, tt.src, tt.opts...)
			require.NoError(t, err)
			got, err := tmpl.ExecuteString(tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Contexts(t *testing.T) {
	tests := []struct {
		src    string
		want   Context
		attr   bool
		quoted bool
	}{
		{"<p>${a}</p>", ContextHTML, false, false},
		{`<p title="${a}">`, ContextAttr, true, true},
		{`<p title='${a}'>`, ContextAttr, true, true},
		{`<p title=${a}>`, ContextAttrUnquoted, true, false},
		{`<a href="${a}">`, ContextURL, true, true},
		{`<a href=${a}>`, ContextURL, true, false},
		{`<a href="/x?${a}">`, ContextURLPart, true, true},
		{`<a onclick="${a}">`, ContextJS, true, true},
		{`<a onclick="'${a}'">`, ContextJSString, true, true},
		{`<a onclick="x = &quot;${a}&quot;">`, ContextJSString, true, true},
		{"<script>${a}</script>", ContextJS, false, false},
		{"<script>'${a}'</script>", ContextJSString, false, false},
		{"<style>${a}</style>", ContextCSS, false, false},
		{`<p style="${a}">`, ContextCSS, true, true},
		{"<!-- ${a} -->", ContextComment, false, false},
		{"<title>${a}</title>", ContextHTML, false, false},
		{"<textarea>${a}</textarea>", ContextHTML, false, false},
		{`<meta content="0;url=${a}">`, ContextURL, true, true},
		{`<meta content="0;url=/x${a}">`, ContextURLPath, true, true},
		{`<a href="/users/${a}">`, ContextURLPath, true, true},
		{`<a href="/x#${a}">`, ContextURLPart, true, true},
		{`<a href="/x&#63;${a}">`, ContextURLPart, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tmpl, err := Parse("t", tt.src)
			require.NoError(t, err)
			phs := tmpl.Placeholders()
			require.Len(t, phs, 1)
			assert.Equal(t, tt.want, phs[0].Context, "got %s", phs[0].Context)
			assert.Equal(t, tt.attr, phs[0].Attribute)
			assert.Equal(t, tt.quoted, phs[0].Quoted)
		})
	}
}

func TestParse_InsertionStartsURL(t *testing.T) {
	tmpl, err := Parse("t", `<a href="${a}${b}">`)
	require.NoError(t, err)
	var got []Context
	for _, ph := range tmpl.Placeholders() {
		got = append(got, ph.Context)
	}
	if diff := cmp.Diff([]Context{ContextURL, ContextURLPath}, got); diff != "" {
		t.Errorf("contexts diff (-want +got):\n%s", diff)
	}
}

func TestParse_ContextAfterJSValue(t *testing.T) {
	tests := []struct {
		src  string
		want []Context
	}{
		{`<script>${a} / 2; "${b}"</script>`, []Context{ContextJS, ContextJSString}},
		{`<script>x = ${a}/2; '${b}'</script>`, []Context{ContextJS, ContextJSString}},
		{`<script>${a}; "${b}"</script>`, []Context{ContextJS, ContextJSString}},
		{"<script>${a} // c\n\"${b}\"</script>", []Context{ContextJS, ContextJSString}},
		{`<script>${a} / ${b}</script>`, []Context{ContextJS, ContextJS}},
		{`<a onclick="f(${a} / 2, '${b}')">`, []Context{ContextJS, ContextJSString}},
		{`<a onclick="f(${a}); &quot;${b}&quot;">`, []Context{ContextJS, ContextJSString}},
		{`<a onclick=${a}/${b}>`, []Context{ContextJS, ContextJS}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tmpl, err := Parse("t", tt.src)
			require.NoError(t, err)
			var got []Context
			for _, ph := range tmpl.Placeholders() {
				got = append(got, ph.Context)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("contexts diff (-want +got):\n%s", diff)
			}
		})
	}

	// A comment after a value is still a comment.
	_, err := Parse("t", "<script>${a} // ${b}\n</script>")
	assert.ErrorIs(t, err, ErrUnsafeContext)
	_, err = Parse("t", `<a onclick="${a} // ${b}">`)
	assert.ErrorIs(t, err, ErrUnsafeContext)
}

func TestParse_LongURLValue(t *testing.T) {
	long := "/" + strings.Repeat("a", 5000)
	tests := []struct {
		src  string
		want Context
	}{
		{`<a href="` + long + `${a}">`, ContextURLPart},
		{`<a href="` + long + `?q=${a}">`, ContextURLPart},
	}
	for _, tt := range tests {
		tmpl, err := Parse("t", tt.src)
		require.NoError(t, err)
		require.Len(t, tmpl.Placeholders(), 1)
		assert.Equal(t, tt.want, tmpl.Placeholders()[0].Context)
	}
}

func TestParse_UnsafeContexts(t *testing.T) {
	tests := []string{
		"<${t}>",
		"<p ${a}>",
		"<p ti${a}tle=x>",
		"<script>/${a}/</script>",
		"<script>// ${a}\n</script>",
		"<script>/* ${a} */</script>",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Parse("t", src)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsafeContext)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "t", e.Template)
		})
	}
}

func TestParse_ErrorPositions(t *testing.T) {
	_, err := Parse("page.tmpl", "<${a}>\n<p ${b}>")
	require.Error(t, err)

	var got [][2]int
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var te *Error
		require.ErrorAs(t, e, &te)
		got = append(got, [2]int{te.Line, te.Column})
	}
	if diff := cmp.Diff([][2]int{{1, 2}, {2, 4}}, got); diff != "" {
		t.Errorf("positions diff (-want +got):\n%s", diff)
	}
	assert.Contains(t, err.Error(), "page.tmpl:2:4: ")
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		src  string
		want error
		line int
		col  int
	}{
		{"<p>${x</p>", ErrUnclosedAction, 1, 4},
		{"<p>\n  ${'x}</p>", ErrUnclosedAction, 2, 3},
		{"<p>${}</p>", ErrEmptyAction, 1, 4},
		{"<p>${  }</p>", ErrEmptyAction, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse("t", tt.src)
			require.ErrorIs(t, err, tt.want)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.line, e.Line)
			assert.Equal(t, tt.col, e.Column)
		})
	}
}

func TestParse_CompileError(t *testing.T) {
	_, err := Parse("t", "<p>${1 +}</p>")
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Error(), "compile ${1 +}")
}

func TestExecute_EvalError(t *testing.T) {
	tmpl := MustParse("t", "<p>\n${x[5]}</p>")
	_, err := tmpl.ExecuteString(map[string]any{"x": []int{1}})
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 2, e.Line)
	assert.Equal(t, 1, e.Column)
}

func TestParse_Spans(t *testing.T) {
	tmpl := MustParse("t", "<p>\n${a} ${b}</p>")
	got := tmpl.Placeholders()
	require.Len(t, got, 2)
	assert.Equal(t, Span{Offset: 4, Line: 2, Column: 1, Length: 4}, got[0].Span)
	assert.Equal(t, Span{Offset: 9, Line: 2, Column: 6, Length: 4}, got[1].Span)
	assert.Equal(t, 13, got[1].Span.End())
	assert.Equal(t, "b", got[1].Expr)
}

func TestParse_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tmpl, err := Parse("t", `<a href="${u}">`, WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=placeholder")
	assert.Contains(t, buf.String(), "context=url")

	_, err = tmpl.ExecuteString(nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=executed")
}

func TestParse_BadMode(t *testing.T) {
	_, err := Parse("t", "x", WithMode(htmlparser.Mode(99)))
	assert.Error(t, err)
}

func TestTemplate_ConcurrentExecute(t *testing.T) {
	tmpl := MustParse("t", `<a href="${u}" onclick="f('${s}')">${n}</a>`)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := tmpl.ExecuteString(map[string]any{"u": "/p", "s": "x", "n": i})
			assert.NoError(t, err)
			assert.Contains(t, out, `<a href="/p" onclick="f('x')">`)
		}(i)
	}
	wg.Wait()
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("boom")
}

func TestTemplate_WriteError(t *testing.T) {
	err := MustParse("t", "<p>${x}</p>").Execute(failingWriter{}, nil)
	assert.EqualError(t, err, "boom")
}

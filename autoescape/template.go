// Package autoescape implements text templates with ${expr} placeholders whose
// values are escaped according to where they appear in the surrounding HTML.
//
// The escaping context of every placeholder is decided once, when the template is
// parsed, by running the literal text through an htmlparser.Parser and stopping at
// each placeholder:
//
//	<a href="${url}" title='${title}' onclick="go('${page}')">${label}</a>
//
// gets a URL check for url, attribute escaping for title, JavaScript string escaping
// for page and HTML escaping for label. Placeholders at positions no escaper can make
// safe, such as a tag name, are rejected by Parse.
//
// Expressions are compiled with github.com/expr-lang/expr and evaluated against the
// variables passed to Execute. Undefined variables evaluate to nil and render empty.
package autoescape

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/net/html"

	"github.com/dpotapov/go-streamhtml/htmlparser"
)

// Placeholder describes one ${...} of a parsed template.
type Placeholder struct {
	Expr    string
	Context Context
	// Attribute is set for placeholders inside an attribute value; Quoted tells
	// whether the value is quoted.
	Attribute bool
	Quoted    bool
	Span      Span

	program *vm.Program
}

// escape encodes v for the placeholder's context and, inside attribute values, for
// the attribute.
func (ph *Placeholder) escape(v any) (string, error) {
	s, err := escapeValue(ph.Context, v)
	if err != nil {
		return "", err
	}
	if ph.Attribute {
		if ph.Quoted {
			return html.EscapeString(s), nil
		}
		return escapeUnquoted(s), nil
	}
	return s, nil
}

type chunk struct {
	text string
	ph   *Placeholder
}

// Template is a parsed template. It is immutable and safe for concurrent use.
type Template struct {
	name   string
	chunks []chunk
	logger *slog.Logger
}

type config struct {
	mode   htmlparser.Mode
	logger *slog.Logger
}

// Option configures Parse.
type Option func(*config)

// WithMode sets the kind of content the template starts in. The default is
// htmlparser.ModeHTML.
func WithMode(mode htmlparser.Mode) Option {
	return func(c *config) {
		c.mode = mode
	}
}

// WithLogger sets the logger for parse and execution diagnostics, logged at debug
// level. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func exprOptions() []expr.Option {
	return []expr.Option{
		expr.AllowUndefinedVariables(),
		// raw marks a value as trusted markup.
		expr.Function("raw", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("raw: expected 1 argument, got %d", len(params))
			}
			return HTML(stringify(params[0])), nil
		}),
	}
}

// Parse parses src. All placeholder errors are reported, joined with errors.Join;
// each of them is an *Error.
func Parse(name, src string, opts ...Option) (*Template, error) {
	cfg := config{
		mode:   htmlparser.ModeHTML,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := htmlparser.New()
	if err := p.ResetMode(cfg.mode); err != nil {
		return nil, err
	}

	t := &Template{name: name, logger: cfg.logger}
	var errs []error
	for _, it := range lex(src) {
		switch it.typ {
		case itemError:
			line, col := position(src, it.pos)
			errs = append(errs, &Error{Template: name, Line: line, Column: col, Err: it.err})
		case itemText:
			if err := p.ParseString(it.val); err != nil {
				return nil, &Error{Template: name, Line: p.Line(), Column: p.Column(), Err: err}
			}
			t.chunks = append(t.chunks, chunk{text: it.val})
		case itemExpr:
			if err := t.addPlaceholder(p, it); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(name, src string, opts ...Option) *Template {
	t, err := Parse(name, src, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) addPlaceholder(p *htmlparser.Parser, it item) error {
	raw := leftDelim + it.val + rightDelim
	ph := &Placeholder{
		Expr:      strings.TrimSpace(it.val),
		Context:   contextOf(p),
		Attribute: p.State() == htmlparser.StateValue,
		Quoted:    p.IsAttributeQuoted(),
		Span: Span{
			Offset: it.pos - len(leftDelim),
			Line:   p.Line(),
			Column: p.Column(),
			Length: len(raw),
		},
	}
	where := describe(p)

	// The parser does not see the placeholder; keep its position in step with the
	// source.
	p.InsertText()
	line, col := advance(p.Line(), p.Column(), raw)
	p.SetLine(line)
	p.SetColumn(col)

	if ph.Context == ContextError {
		return t.errorAt(ph, fmt.Errorf("%w: %s in %s", ErrUnsafeContext, raw, where))
	}
	prog, err := expr.Compile(ph.Expr, exprOptions()...)
	if err != nil {
		return t.errorAt(ph, fmt.Errorf("compile %s: %w", raw, err))
	}
	ph.program = prog
	t.chunks = append(t.chunks, chunk{ph: ph})

	t.logger.Debug("placeholder",
		slog.String("template", t.name),
		slog.String("expr", ph.Expr),
		slog.String("context", ph.Context.String()),
		slog.Int("line", ph.Span.Line),
		slog.Int("column", ph.Span.Column))
	return nil
}

func describe(p *htmlparser.Parser) string {
	if p.InJavascript() {
		return fmt.Sprintf("%s state (javascript %s)", p.InternalState(), p.JavascriptState())
	}
	return p.InternalState() + " state"
}

func (t *Template) errorAt(ph *Placeholder, err error) *Error {
	return &Error{Template: t.name, Line: ph.Span.Line, Column: ph.Span.Column, Err: err}
}

func (t *Template) Name() string {
	return t.name
}

// Placeholders returns the template's placeholders in source order.
func (t *Template) Placeholders() []Placeholder {
	var out []Placeholder
	for _, c := range t.chunks {
		if c.ph != nil {
			out = append(out, *c.ph)
		}
	}
	return out
}

// Execute renders the template with vars to w.
func (t *Template) Execute(w io.Writer, vars map[string]any) error {
	if vars == nil {
		vars = map[string]any{}
	}
	var machine vm.VM
	for _, c := range t.chunks {
		if c.ph == nil {
			if _, err := io.WriteString(w, c.text); err != nil {
				return err
			}
			continue
		}
		v, err := machine.Run(c.ph.program, vars)
		if err != nil {
			return t.errorAt(c.ph, fmt.Errorf("eval ${%s}: %w", c.ph.Expr, err))
		}
		s, err := c.ph.escape(v)
		if err != nil {
			return t.errorAt(c.ph, err)
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	t.logger.Debug("executed", slog.String("template", t.name), slog.Int("vars", len(vars)))
	return nil
}

// ExecuteString renders the template to a string.
func (t *Template) ExecuteString(vars map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}

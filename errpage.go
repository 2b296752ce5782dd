package streamhtml

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dpotapov/go-streamhtml/autoescape"
)

// ErrorView is a template error prepared for display.
type ErrorView struct {
	Message  string
	Template string
	Line     int
	Column   int

	// SourceLines is the template source around Line. It is empty when the source
	// cannot be read.
	SourceLines []SourceLine
}

// SourceLine is one numbered line of template source.
type SourceLine struct {
	Number int
	Text   string
	Error  bool
}

// newErrorViews collects the template errors in err. Errors without a template
// position produce a view with the message only.
func newErrorViews(err error, fsys fs.FS, contextLines int) []*ErrorView {
	var views []*ErrorView
	for _, te := range templateErrors(err, nil) {
		views = append(views, &ErrorView{
			Message:     te.Err.Error(),
			Template:    te.Template,
			Line:        te.Line,
			Column:      te.Column,
			SourceLines: sourceContext(fsys, te.Template, te.Line, contextLines),
		})
	}
	if len(views) == 0 {
		views = append(views, &ErrorView{Message: err.Error()})
	}
	return views
}

// templateErrors walks the error tree, including joined errors, and returns every
// *autoescape.Error in it.
func templateErrors(err error, out []*autoescape.Error) []*autoescape.Error {
	switch e := err.(type) {
	case nil:
		return out
	case *autoescape.Error:
		return append(out, e)
	case interface{ Unwrap() []error }:
		for _, err := range e.Unwrap() {
			out = templateErrors(err, out)
		}
		return out
	}
	return templateErrors(errors.Unwrap(err), out)
}

func sourceContext(fsys fs.FS, name string, line, n int) []SourceLine {
	if fsys == nil || name == "" || line < 1 {
		return nil
	}
	src, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil
	}
	lines := strings.Split(string(src), "\n")
	if line > len(lines) {
		return nil
	}

	first, last := max(1, line-n), min(len(lines), line+n)
	out := make([]SourceLine, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, SourceLine{Number: i, Text: lines[i-1], Error: i == line})
	}
	return out
}

// renderErrorPage writes an HTML page describing views. Text goes through
// html.Render, which escapes it.
func renderErrorPage(w io.Writer, views []*ErrorView) error {
	el := func(a atom.Atom, attrs ...string) *html.Node {
		n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
		for i := 0; i+1 < len(attrs); i += 2 {
			n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
		}
		return n
	}
	text := func(s string) *html.Node {
		return &html.Node{Type: html.TextNode, Data: s}
	}

	body := el(atom.Body)
	h1 := el(atom.H1)
	h1.AppendChild(text(fmt.Sprintf("%d template error(s)", len(views))))
	body.AppendChild(h1)

	for _, v := range views {
		section := el(atom.Section, "class", "error")
		h2 := el(atom.H2)
		if v.Template != "" {
			h2.AppendChild(text(v.Template + ":" + strconv.Itoa(v.Line) + ":" + strconv.Itoa(v.Column)))
			section.AppendChild(h2)
		}
		p := el(atom.P, "class", "message")
		p.AppendChild(text(v.Message))
		section.AppendChild(p)

		if len(v.SourceLines) > 0 {
			pre := el(atom.Pre)
			for _, sl := range v.SourceLines {
				span := el(atom.Span)
				if sl.Error {
					span = el(atom.Mark)
				}
				span.AppendChild(text(fmt.Sprintf("%4d | %s\n", sl.Number, sl.Text)))
				pre.AppendChild(span)
			}
			section.AppendChild(pre)
		}
		body.AppendChild(section)
	}

	title := el(atom.Title)
	title.AppendChild(text("Template error"))
	head := el(atom.Head)
	head.AppendChild(title)

	root := el(atom.Html)
	root.AppendChild(head)
	root.AppendChild(body)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(root)
	return html.Render(w, doc)
}

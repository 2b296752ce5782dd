package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"

	"github.com/dpotapov/go-streamhtml/htmlparser"
)

// record is the parser state after one input character.
type record struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Char     string `json:"char"`
	Internal string `json:"internal"`
	State    string `json:"state"`
	Tag      string `json:"tag,omitempty"`
	Attr     string `json:"attr,omitempty"`
	AttrType string `json:"attr_type,omitempty"`
	JSState  string `json:"js_state,omitempty"`
}

type traceOptions struct {
	mode    string
	format  string
	changes bool
}

func newTraceCmd(a *app) *cobra.Command {
	opts := traceOptions{}

	cmd := &cobra.Command{
		Use:   "trace [file]",
		Short: "Print the parser context after every character",
		Long: `Feeds a document to the HTML parser one character at a time and prints the
position, the internal and external state, the current tag and attribute, and the
JavaScript state for each character. Reads stdin when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, src, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			records, err := trace(src, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			a.logger.Debug("trace", "input", name, "records", len(records))
			return writeRecords(cmd.OutOrStdout(), records, opts.format)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "html", "initial content: html, js, css or tag")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text, json or xml")
	cmd.Flags().BoolVar(&opts.changes, "changes", false, "only print characters that change the external state")
	return cmd
}

// trace parses src and collects a record per character. Records collected before a
// parse error are returned along with it.
func trace(src string, opts traceOptions) ([]record, error) {
	mode, err := htmlparser.ParseMode(opts.mode)
	if err != nil {
		return nil, err
	}
	switch opts.format {
	case "text", "json", "xml":
	default:
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}

	p := htmlparser.New()
	if err := p.ResetMode(mode); err != nil {
		return nil, err
	}

	var records []record
	prev := p.State()
	for _, c := range src {
		line, col := p.Line(), p.Column()
		if err := p.Parse(c); err != nil {
			return records, err
		}
		if opts.changes && p.State() == prev {
			continue
		}
		prev = p.State()

		r := record{
			Line:     line,
			Column:   col,
			Char:     strconv.QuoteRune(c),
			Internal: p.InternalState(),
			State:    p.State().String(),
			Tag:      p.Tag(),
			Attr:     p.Attribute(),
		}
		if p.InAttribute() {
			r.AttrType = p.AttributeType().String()
		}
		if p.InJavascript() {
			r.JSState = p.JavascriptState().String()
		}
		records = append(records, r)
	}
	return records, nil
}

func writeRecords(w io.Writer, records []record, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if records == nil {
			records = []record{}
		}
		return enc.Encode(records)
	case "xml":
		doc := etree.NewDocument()
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
		root := doc.CreateElement("trace")
		for _, r := range records {
			el := root.CreateElement("char")
			el.CreateAttr("line", strconv.Itoa(r.Line))
			el.CreateAttr("column", strconv.Itoa(r.Column))
			el.CreateAttr("value", r.Char)
			el.CreateAttr("internal", r.Internal)
			el.CreateAttr("state", r.State)
			for _, kv := range [][2]string{{"tag", r.Tag}, {"attr", r.Attr}, {"attr-type", r.AttrType}, {"js-state", r.JSState}} {
				if kv[1] != "" {
					el.CreateAttr(kv[0], kv[1])
				}
			}
		}
		doc.Indent(2)
		_, err := doc.WriteTo(w)
		return err
	}

	for _, r := range records {
		_, err := fmt.Fprintf(w, "%d:%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Line, r.Column, r.Char, r.Internal, r.State, r.Tag, r.Attr, r.AttrType, r.JSState)
		if err != nil {
			return err
		}
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dpotapov/go-streamhtml/autoescape"
	"github.com/dpotapov/go-streamhtml/htmlparser"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		varsFile string
		mode     string
	)

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render an auto-escaped template",
		Long: `Renders a template with ${expr} placeholders to stdout. Variables are read from
a YAML or JSON file. Files named *.js.tmpl and *.css.tmpl start in JavaScript and CSS
mode unless --mode is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			vars, err := loadVars(varsFile)
			if err != nil {
				return err
			}

			if mode == "" {
				mode = modeFromName(args[0])
			}
			m, err := htmlparser.ParseMode(mode)
			if err != nil {
				return err
			}

			tmpl, err := autoescape.Parse(args[0], string(src),
				autoescape.WithMode(m),
				autoescape.WithLogger(a.logger))
			if err != nil {
				return err
			}
			return tmpl.Execute(cmd.OutOrStdout(), vars)
		},
	}

	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML or JSON file with template variables")
	cmd.Flags().StringVar(&mode, "mode", "", "initial content: html, js, css or tag")
	return cmd
}

// loadVars reads template variables. JSON documents are valid YAML, so one decoder
// serves both.
func loadVars(path string) (map[string]any, error) {
	vars := map[string]any{}
	if path == "" {
		return vars, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vars: %w", err)
	}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("parse vars %s: %w", path, err)
	}
	return vars, nil
}

func modeFromName(name string) string {
	switch filepath.Ext(strings.TrimSuffix(name, ".tmpl")) {
	case ".js":
		return "js"
	case ".css":
		return "css"
	}
	return "html"
}

// Package streamhtml serves auto-escaped templates over HTTP.
//
// Templates are files with the .tmpl extension whose ${expr} placeholders are escaped
// according to their position in the markup; see package autoescape. The escaping
// context comes from the streaming parsers in packages htmlparser and jsparser.
package streamhtml

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/dpotapov/go-streamhtml/autoescape"
	"github.com/dpotapov/go-streamhtml/htmlparser"
)

// templateExt is the extension of template files. It is used when matching files in
// the file system.
const templateExt = ".tmpl"

// validIdentifierRegex matches the names of dynamic path segments.
var validIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Handler serves templates and static files from a file system.
//
// URL paths map to files as follows:
//   - / -> /index.tmpl
//   - /foo -> /foo.tmpl
//   - /foo/ -> /foo/index.tmpl
//   - /app.js -> /app.js.tmpl, parsed as JavaScript
//   - /foo/file.txt -> /foo/file.txt, served as is
//
// A file or directory named _name matches any segment, which is passed to the
// template as the variable name. Query and form parameters are passed as variables
// too (see DecodeValues), and the request itself as the variable request (see
// RequestArg).
type Handler struct {
	// FileSystem to serve templates and other web assets from.
	FileSystem fs.FS

	// OnError is a callback that is called when an error occurs while serving a page.
	OnError func(*http.Request, error)

	// Logger configures logging for internal events.
	Logger *slog.Logger

	// Data returns extra template variables for a request. They take precedence over
	// query parameters and path segments.
	Data func(r *http.Request) map[string]any

	// DebugErrors replaces the plain 500 response with a page listing the template
	// errors and the source around them. Meant for development.
	DebugErrors bool

	// DisableCache makes the handler parse templates on every request instead of once.
	DisableCache bool

	// init is used to initialize the handler only once.
	init sync.Once

	// logger is a private logger instance that is used to log internal events.
	logger *slog.Logger

	// templates caches parsed templates by file system path.
	templates sync.Map
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.init.Do(func() {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		if h.Logger != nil {
			h.logger = h.Logger
		}
	})

	if err := h.handleRequest(w, r); err != nil {
		h.writeError(w, err)

		h.logger.Error("Serve HTTP request", "url", r.URL.Redacted(), "error", err)

		if h.OnError != nil {
			h.OnError(r, err)
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if !h.DebugErrors {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusInternalServerError)
	if err := renderErrorPage(w, newErrorViews(err, h.FileSystem, 3)); err != nil {
		h.logger.Error("Render error page", "error", err)
	}
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) error {
	urlPath := cleanPath(r.URL.EscapedPath())

	params := map[string]string{}

	fsPath, err := h.matchFS(urlPath, ".", params)
	if err != nil {
		return err
	}

	if fsPath == "" {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return nil
	}

	if strings.HasSuffix(fsPath, templateExt) {
		return h.servePage(w, r, fsPath, params)
	}

	return h.serveFile(w, r, fsPath)
}

func (h *Handler) servePage(w http.ResponseWriter, r *http.Request, fsPath string, params map[string]string) error {
	t, err := h.template(fsPath)
	if err != nil {
		return err
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return nil
	}
	vars := DecodeValues(r.Form, h.logger)
	for k, v := range params {
		vars[k] = v
	}
	if h.Data != nil {
		for k, v := range h.Data(r) {
			vars[k] = v
		}
	}
	vars["request"] = NewRequestArg(r)

	// Render to a buffer first: a failed template must still produce a clean 500.
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	w.Header().Set("Content-Type", contentType(fsPath))
	_, err = buf.WriteTo(w)
	return err
}

// template returns the parsed template at fsPath, from the cache when possible.
func (h *Handler) template(fsPath string) (*autoescape.Template, error) {
	if !h.DisableCache {
		if t, ok := h.templates.Load(fsPath); ok {
			return t.(*autoescape.Template), nil
		}
	}

	src, err := fs.ReadFile(h.FileSystem, fsPath)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	t, err := autoescape.Parse(fsPath, string(src),
		autoescape.WithMode(templateMode(fsPath)),
		autoescape.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	if h.DisableCache {
		return t, nil
	}
	h.logger.Debug("Template parsed", "path", fsPath, "placeholders", len(t.Placeholders()))
	actual, _ := h.templates.LoadOrStore(fsPath, t)
	return actual.(*autoescape.Template), nil
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, fsPath string) error {
	r.URL.Path = fsPath
	r.URL.RawPath = fsPath
	http.FileServer(http.FS(h.FileSystem)).ServeHTTP(w, r)
	return nil
}

// templateMode picks the parser mode from the extension in front of .tmpl.
func templateMode(fsPath string) htmlparser.Mode {
	switch path.Ext(strings.TrimSuffix(fsPath, templateExt)) {
	case ".js":
		return htmlparser.ModeJS
	case ".css":
		return htmlparser.ModeCSS
	}
	return htmlparser.ModeHTML
}

func contentType(fsPath string) string {
	ext := path.Ext(strings.TrimSuffix(fsPath, templateExt))
	if ct := mime.TypeByExtension(ext); ext != "" && ct != "" {
		return ct
	}
	return "text/html; charset=utf-8"
}

// matchFS resolves urlPath to a file below dir. It returns "" if nothing matches.
func (h *Handler) matchFS(urlPath, dir string, params map[string]string) (string, error) {
	if urlPath == "" {
		return "", nil
	}

	entries, err := fs.ReadDir(h.FileSystem, dir)
	if err != nil {
		return "", fmt.Errorf("read directory %s: %w", dir, err)
	}

	seg, rest := firstSegment(urlPath)

	// skip hidden files and directories
	if seg[0] == '.' {
		return "", nil
	}

	if rest == "" {
		return h.matchFile(seg, dir, entries, params)
	}

	sub, err := h.matchDir(seg, dir, entries, params)
	if sub == "" || err != nil {
		return "", err
	}
	return h.matchFS(rest, sub, params)
}

func (h *Handler) matchDir(seg, dir string, entries []fs.DirEntry, params map[string]string) (string, error) {
	dynamicMatch := ""

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()

		if name == seg {
			return path.Join(dir, name), nil
		}

		if name[0] == '_' {
			if err := checkDynamic(dir, name[1:], dynamicMatch, params); err != nil {
				return "", err
			}
			dynamicMatch = name
		}
	}

	if dynamicMatch != "" {
		params[dynamicMatch[1:]] = seg
		return path.Join(dir, dynamicMatch), nil
	}

	return "", nil
}

func (h *Handler) matchFile(seg, dir string, entries []fs.DirEntry, params map[string]string) (string, error) {
	dynamicMatch := ""

	if seg == "/" {
		seg = "index"
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		if !strings.HasSuffix(name, templateExt) {
			if name == seg {
				return path.Join(dir, name), nil
			}
			continue
		}

		base := strings.TrimSuffix(name, templateExt)
		if base == seg {
			return path.Join(dir, name), nil
		}
		if len(base) > 1 && base[0] == '_' {
			if err := checkDynamic(dir, base[1:], dynamicMatch, params); err != nil {
				return "", err
			}
			dynamicMatch = name
		}
	}

	if dynamicMatch != "" && seg != "index" {
		params[strings.TrimSuffix(dynamicMatch[1:], templateExt)] = seg
		return path.Join(dir, dynamicMatch), nil
	}

	return "", nil
}

func checkDynamic(dir, name, previous string, params map[string]string) error {
	if !validIdentifierRegex.MatchString(name) {
		return fmt.Errorf("invalid dynamic match in %s", dir)
	}
	if previous != "" {
		return fmt.Errorf("multiple dynamic matches in %s", dir)
	}
	if params[name] != "" {
		return fmt.Errorf("duplicate dynamic match in %s", dir)
	}
	return nil
}

// cleanPath returns the canonical path for p, eliminating . and .. elements.
//
// Copied from net/http/server.go
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	// path.Clean removes trailing slash except for root;
	// put the trailing slash back if necessary.
	if p[len(p)-1] == '/' && np != "/" {
		// Fast path for common case of p being the string we want:
		if len(p) == len(np)+1 && strings.HasPrefix(p, np) {
			np = p
		} else {
			np += "/"
		}
	}
	return np
}

// firstSegment splits path into its first segment, and the rest.
// The path must begin with "/".
// If path consists of only a slash, firstSegment returns ("/", "").
// The segment is returned unescaped, if possible.
//
// Copied from net/http/routing_tree.go.
func firstSegment(path string) (seg, rest string) {
	if path == "/" {
		return "/", ""
	}
	path = path[1:] // drop initial slash
	i := strings.IndexByte(path, '/')
	if i < 0 {
		i = len(path)
	}
	return pathUnescape(path[:i]), path[i:]
}

// Copied from net/http/routing_tree.go.
func pathUnescape(path string) string {
	u, err := url.PathUnescape(path)
	if err != nil {
		// Invalidly escaped path; use the original
		return path
	}
	return u
}

// RequestArg is a simplified model of http.Request for template expressions.
type RequestArg struct {
	Method     string              `expr:"method"`
	URL        string              `expr:"url"`
	Host       string              `expr:"host"`
	Path       string              `expr:"path"`
	Query      map[string][]string `expr:"query"`
	RemoteAddr string              `expr:"remote_addr"`
	Headers    map[string][]string `expr:"headers"`
}

func NewRequestArg(r *http.Request) *RequestArg {
	return &RequestArg{
		Method:     r.Method,
		URL:        r.RequestURI,
		Host:       r.Host,
		Path:       r.URL.Path,
		Query:      r.URL.Query(),
		RemoteAddr: r.RemoteAddr,
		Headers:    r.Header,
	}
}

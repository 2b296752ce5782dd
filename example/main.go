package main

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/dpotapov/go-streamhtml"
)

func LoggerMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("HTTP request", "method", r.Method, "url", r.URL)
		next.ServeHTTP(w, r)
	})
}

// todoDB is an in-memory list shared by all requests.
type todoDB struct {
	todos []string
	mu    sync.Mutex
}

func (b *todoDB) Todos() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	todos := make([]string, len(b.todos))
	copy(todos, b.todos)
	return todos
}

func (b *todoDB) Add(todo string) {
	if todo == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.todos = append(b.todos, todo)
}

func (b *todoDB) Del(index int) {
	if index <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if index <= len(b.todos) {
		b.todos = append(b.todos[:index-1], b.todos[index:]...)
	}
}

// data applies the add and del query parameters and exposes the list to templates.
func (b *todoDB) data(r *http.Request) map[string]any {
	q := r.URL.Query()
	b.Add(q.Get("add"))
	if del, err := strconv.Atoi(q.Get("del")); err == nil {
		b.Del(del)
	}
	return map[string]any{"todos": b.Todos()}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	db := &todoDB{todos: []string{}}

	ph := &streamhtml.Handler{
		FileSystem:   os.DirFS("./example/pages"),
		Data:         db.data,
		DisableCache: os.Getenv("DEV") != "",
		Logger:       logger,
	}

	logger.Info("Starting HTTP server", "address", "http://localhost:8080")

	err := http.ListenAndServe(":8080", LoggerMiddleware(ph, logger))

	logger.Error("HTTP server error", "error", err)
}

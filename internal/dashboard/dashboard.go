// Package dashboard implements the read-only HTML/JSON projection over the
// task table that spec.md §1 names as an external collaborator: a pure
// read-only view, never a write path into the queue. Grounded on
// internal/http/response's JSON error-envelope shape for the API responses;
// the HTML template itself has no teacher precedent (the teacher's own HTTP
// surface was a gRPC-gateway front door) and is written plainly with
// html/template — no templating library appears anywhere in the retrieval
// pack to justify pulling one in for untyped map payloads.
package dashboard

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/arashn/taskqueue/internal/domain"
	"github.com/arashn/taskqueue/internal/store"
)

// Dashboard serves a read-only view over a store.Store: an HTML task list
// and a JSON API mirroring it. It never mutates a row.
type Dashboard struct {
	store store.Store
	tmpl  *template.Template
}

// New constructs a Dashboard over an already-open store.
func New(s store.Store) *Dashboard {
	return &Dashboard{store: s, tmpl: template.Must(template.New("tasks").Parse(pageTemplate))}
}

// Handler returns the mux to serve, wrapped with otelhttp instrumentation
// the same way the teacher wraps its gRPC-gateway mux.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", d.handleIndex)
	mux.HandleFunc("GET /api/tasks", d.handleListJSON)
	mux.HandleFunc("GET /api/tasks/{id}", d.handleGetJSON)
	mux.HandleFunc("GET /api/dead-letter", d.handleDeadLetterJSON)
	return otelhttp.NewHandler(mux, "dashboard")
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	filters, limit := parseFilters(r)
	tasks, err := d.store.List(r.Context(), filters, limit)
	if err != nil {
		writeError(w, r, "INTERNAL_ERROR", http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.tmpl.Execute(w, pageData{Tasks: tasks}); err != nil {
		slog.ErrorContext(r.Context(), "failed to render dashboard template", "error", err)
	}
}

func (d *Dashboard) handleListJSON(w http.ResponseWriter, r *http.Request) {
	filters, limit := parseFilters(r)
	tasks, err := d.store.List(r.Context(), filters, limit)
	if err != nil {
		writeError(w, r, "INTERNAL_ERROR", http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (d *Dashboard) handleGetJSON(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := d.store.Get(r.Context(), id)
	if errors.Is(err, domain.ErrTaskNotFound) {
		writeError(w, r, "NOT_FOUND", http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, r, "INTERNAL_ERROR", http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (d *Dashboard) handleDeadLetterJSON(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)
	tasks, err := d.store.ListTerminalFailed(r.Context(), limit)
	if err != nil {
		writeError(w, r, "INTERNAL_ERROR", http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func parseLimit(r *http.Request, def int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func parseFilters(r *http.Request) (store.Filters, int) {
	var filters store.Filters
	q := r.URL.Query()
	if s := q.Get("state"); s != "" {
		state := domain.State(s)
		filters.State = &state
	}
	if n := q.Get("name"); n != "" {
		filters.Name = &n
	}
	return filters, parseLimit(r, 50)
}

type pageData struct {
	Tasks []*domain.Task
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
  <title>Task Queue Dashboard</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 2rem; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; font-size: 0.9rem; }
    th { background: #f4f4f4; }
    .pending { color: #946200; }
    .running { color: #1a5fb4; }
    .completed { color: #26a269; }
    .failed { color: #c01c28; }
  </style>
</head>
<body>
  <h1>Task Queue</h1>
  <table>
    <tr><th>ID</th><th>Name</th><th>State</th><th>Retries</th><th>Scheduled</th><th>Worker</th></tr>
    {{range .Tasks}}
    <tr>
      <td>{{.ID}}</td>
      <td>{{.Name}}</td>
      <td class="{{.State}}">{{.State}}</td>
      <td>{{.RetryCount}}/{{.MaxRetries}}</td>
      <td>{{.ScheduledAt}}</td>
      <td>{{if .WorkerID}}{{.WorkerID}}{{end}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>
`

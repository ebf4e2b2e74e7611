/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/employees/*    Employee, document, and timesheet-list management
  /api/documents/*    Document revocation
  /api/tasks/*        Task catalog
  /api/timesheets/*   Timesheets, entries, preview, workflow
  /api/compliance/*   Audit log, limits table, expiry notices
  /api/scenarios/*    Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. origins is
// the CORS allowlist for the frontend.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/documents", h.ListDocuments)
			r.Post("/{id}/documents", h.IssueDocument)
			r.Get("/{id}/timesheets", h.ListTimesheets)
			r.Get("/{id}/hour-limits", h.GetEmployeeHourLimits)
		})

		// Document routes
		r.Route("/documents", func(r chi.Router) {
			r.Post("/{id}/invalidate", h.InvalidateDocument)
		})

		// Task catalog routes
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Post("/defaults", h.LoadDefaultTasks)
		})

		// Timesheet routes
		r.Route("/timesheets", func(r chi.Router) {
			r.Post("/", h.OpenTimesheet)
			r.Get("/{id}", h.GetTimesheet)

			r.Post("/{id}/entries", h.CreateEntry)
			r.Put("/{id}/entries/{entryID}", h.UpdateEntry)
			r.Delete("/{id}/entries/{entryID}", h.DeleteEntry)
			r.Post("/{id}/preview", h.PreviewEntry)

			r.Post("/{id}/submit", h.SubmitTimesheet)
			r.Post("/{id}/approve", h.ApproveTimesheet)
			r.Post("/{id}/reject", h.RejectTimesheet)
			r.Post("/{id}/reopen", h.ReopenTimesheet)
		})

		// Compliance reporting routes
		r.Route("/compliance", func(r chi.Router) {
			r.Get("/checks", h.QueryChecks)
			r.Get("/limits", h.GetHourLimits)
			r.Get("/expiring-permits", h.ListExpiringPermits)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	// Landing page for anyone poking the server root.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Orchard Compliance Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Orchard Compliance Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/employees">/api/employees</a> - List employees</li>
<li><a href="/api/tasks">/api/tasks</a> - Task catalog</li>
<li><a href="/api/compliance/limits">/api/compliance/limits</a> - Hour-limit table</li>
<li><a href="/api/compliance/checks">/api/compliance/checks</a> - Audit log</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}

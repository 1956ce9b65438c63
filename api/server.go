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
  /api/companies/*      Carrier registry
  /api/agents/*         Agents, sub-agents, commission views
  /api/clients/*        Client registry
  /api/rules/*          Commission rule management
  /api/policies/*       Policy issue and lifecycle
  /api/renewals/*       Renewal cycle operations
  /api/commissions/*    Commission ledger
  /api/import/*         Bulk CSV import
  /api/admin/*          Admin operations

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

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Company routes
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompanies)
			r.Post("/", h.CreateCompany)
			r.Get("/{id}", h.GetCompany)
		})

		// Agent routes
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Get("/{id}", h.GetAgent)
			r.Get("/{id}/policies", h.ListAgentPolicies)
			r.Get("/{id}/commissions", h.ListAgentCommissions)
			r.Get("/{id}/commissions/summary", h.GetAgentSummary)
			r.Get("/{id}/sub-agents", h.ListSubAgents)
			r.Post("/{id}/sub-agents", h.CreateSubAgent)
		})

		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/{id}", h.GetClient)
		})

		// Commission rule routes
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.CreateRule)
		})

		// Policy routes
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.IssuePolicy)
			r.Get("/{id}", h.GetPolicy)
			r.Post("/{id}/cancel", h.CancelPolicy)
			r.Get("/{id}/commissions", h.ListPolicyCommissions)
		})

		// Renewal routes
		r.Route("/renewals", func(r chi.Router) {
			r.Get("/due", h.ListDueRenewals)
			r.Post("/{id}/complete", h.CompleteRenewal)
			r.Post("/{id}/lapse", h.LapseRenewal)
		})

		// Commission ledger routes
		r.Route("/commissions", func(r chi.Router) {
			r.Get("/", h.ListCommissions)
			r.Post("/{id}/pay", h.PayCommission)
		})

		// Bulk import routes
		r.Route("/import", func(r chi.Router) {
			r.Post("/policies", h.ImportPolicies)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/renewals/run", h.TriggerRenewalRun)
		})
	})

	// Placeholder landing page for the API root.
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Brokerage Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Brokerage Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/companies">/api/companies</a> - List carriers</li>
<li><a href="/api/agents">/api/agents</a> - List agents</li>
<li><a href="/api/policies">/api/policies</a> - List policies</li>
<li><a href="/api/renewals/due">/api/renewals/due</a> - Pending renewals</li>
<li><a href="/api/commissions">/api/commissions</a> - Commission ledger</li>
</ul>
</body>
</html>`))
	})

	return r
}

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
  4. CORS:       Cross-origin requests for the mobile/web clients

ROUTE GROUPS:
  /api/punches/*        Punch submission and history
  /api/status           Batch active status
  /api/roster           Directory roster with live status
  /api/labor/*          Labor hours/cost aggregation
  /api/sites/*          Geofenced site management
  /api/admin/*          Admin ledger corrections and audit trail

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public;
  the admin routes trust the admin_id supplied by the caller.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
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

	r.Route("/api", func(r chi.Router) {
		// Punch routes
		r.Route("/punches", func(r chi.Router) {
			r.Post("/", h.SubmitPunch)
			r.Get("/{employeeID}", h.ListPunches)
		})

		// Status routes
		r.Get("/status", h.BatchStatus)
		r.Get("/roster", h.Roster)

		// Labor aggregation routes
		r.Get("/labor/summary", h.LaborSummary)

		// Site routes
		r.Route("/sites", func(r chi.Router) {
			r.Get("/", h.ListSites)
			r.Post("/", h.CreateSite)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/punch-pairs", h.AdminCreatePair)
			r.Delete("/punches/{id}", h.AdminDeletePunch)
			r.Get("/changes/{employeeID}", h.AdminChanges)
		})
	})

	return r
}

/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/medications/*  Inventory, doses, restock, projections
  /api/checklist/*    Today's completion state
  /api/schedule       Upcoming dosing days
  /api/history        Notification log

SECURITY NOTE:
  No authentication middleware. This is a single-user personal tracker
  meant to run on localhost or a trusted LAN.

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/medications", func(r chi.Router) {
			r.Get("/", h.ListMedications)
			r.Post("/", h.CreateMedication)
			r.Put("/{id}", h.UpdateMedication)
			r.Delete("/{id}", h.DeleteMedication)
			r.Post("/{id}/doses", h.TakeDose)
			r.Post("/{id}/restock", h.Restock)
			r.Get("/{id}/remaining", h.GetRemaining)
		})

		r.Route("/checklist", func(r chi.Router) {
			r.Get("/", h.GetChecklist)
			r.Post("/{id}/toggle", h.ToggleChecklist)
			r.Post("/complete-all", h.CompleteAll)
		})

		r.Get("/schedule", h.GetSchedule)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.GetHistory)
			r.Delete("/", h.ClearHistory)
		})
	})

	return r
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tmkoushik/cfgvault-backend/internal/handlers"
)

// Handlers bundles the constructed handler set for route registration.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Dashboard *handlers.DashboardHandler
	Events    *handlers.EventsHandler
}

func SetupRoutes(r *chi.Mux, h Handlers) {
	// Auth routes
	r.Post("/api/auth/signup", h.Auth.Signup)
	r.Post("/api/auth/signin", h.Auth.Signin)
	r.Post("/api/auth/signout", h.Auth.Signout)
	r.Get("/api/auth/me", h.Auth.Me)

	// Record listing (reloads from the store each call)
	r.Get("/api/records", h.Dashboard.ListRecords)

	// CAPTCHA refresh for the open form
	r.Get("/api/captcha", h.Dashboard.Challenge)

	// Dashboard view-state transitions
	r.Get("/api/dashboard/state", h.Dashboard.GetState)
	r.Post("/api/dashboard/form/open", h.Dashboard.FormOpen)
	r.Post("/api/dashboard/form/cancel", h.Dashboard.FormCancel)
	r.Post("/api/dashboard/form/submit", h.Dashboard.FormSubmit)
	r.Post("/api/dashboard/success/dismiss", h.Dashboard.SuccessDismiss)
	r.Post("/api/dashboard/view/open", h.Dashboard.ViewOpen)
	r.Post("/api/dashboard/view/close", h.Dashboard.ViewClose)
	r.Post("/api/dashboard/view/delete", h.Dashboard.ViewDelete)

	// WebSocket endpoint for dashboard refresh events
	r.Get("/ws/events", h.Events.Stream)
}

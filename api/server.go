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
  /api/tasks/*   Task management and materialization
  /api/habits/*  Habit tracking, streaks, reports

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		// Task routes
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Post("/materialize", h.MaterializeAll)
			r.Get("/{id}", h.GetTask)
			r.Post("/{id}/materialize", h.MaterializeTask)
			r.Post("/{id}/complete", h.CompleteTask)
			r.Post("/{id}/subtasks", h.AddSubtasks)
			r.Post("/{id}/subtasks/{subtaskID}/complete", h.CompleteSubtask)
		})

		// Habit routes
		r.Route("/habits", func(r chi.Router) {
			r.Get("/", h.ListHabits)
			r.Post("/", h.CreateHabit)
			r.Get("/{id}", h.GetHabit)
			r.Post("/{id}/completions", h.MarkCompletion)
			r.Delete("/{id}/completions/{date}", h.RemoveCompletion)
			r.Get("/{id}/streak", h.GetStreak)
			r.Get("/{id}/report", h.GetReport)
		})
	})

	return r
}

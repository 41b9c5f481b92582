package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.faces, s.log)
	healthHandler := handlers.NewHealthHandler(s.checker, s.log)
	configHandler := handlers.NewConfigHandler(s.config.Recognition)

	// Liveness (no auth required)
	s.router.Get("/healthz", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.auth))

		// Any authenticated session, kiosks included
		r.Post("/faces/verify", facesHandler.Verify)
		r.Get("/config", configHandler.Get)

		// Managers only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleManager))

			r.Post("/faces/register", facesHandler.Register)
			r.Get("/employees/{id}/faces", facesHandler.Count)
			r.Delete("/employees/{id}/faces", facesHandler.Clear)
			r.Put("/employees/{id}/faces/active", facesHandler.SetActive)

			r.Get("/cache/status", facesHandler.CacheStatus)
			r.Post("/cache/refresh", facesHandler.CacheRefresh)
			r.Post("/maintenance/prune", facesHandler.Prune)

			r.Get("/health", healthHandler.Health)
			r.Get("/diagnostics", healthHandler.Diagnostics)
		})
	})
}

// Package server wires HTTP handlers into a chi router for the chat relay.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns the HTTP router with all application routes.
func SetupRoutes(h *Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(metricsMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(chimw.Recoverer)

	r.Get("/", HealthHandler)
	r.Get("/health", h.HealthCheckHandler)
	r.HandleFunc("/ws", h.WebSocketHandler)
	r.Get("/test", TestPageHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.origins.corsOrigins(),
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/rooms", h.RoomsHandler)
		r.Get("/rooms/{room}/users", h.RoomUsersHandler)
	})

	return r
}

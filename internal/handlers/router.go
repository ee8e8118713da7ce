// internal/handlers/router.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/pileup/internal/coordinator"
	"github.com/jason-s-yu/pileup/internal/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the WebSocket endpoint and the JSON side channel.
// originPatterns are host patterns ("example.com", "*.example.com", "*") used
// both for the WebSocket origin check and for CORS on the API.
func NewRouter(logger *logrus.Logger, coord *coordinator.Coordinator, originPatterns []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))

	// Health checks are not request-logged.
	r.Get("/health", HealthHandler(coord))

	r.Group(func(r chi.Router) {
		r.Use(middleware.LogMiddleware(logger))
		r.Get("/ws", WSHandler(logger, coord, originPatterns))

		r.Route("/api/rooms", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: corsOrigins(originPatterns),
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
			r.Post("/", CreateRoomHandler(coord))
			r.Get("/{id}", RoomSummaryHandler(coord))
			r.Post("/{id}/deal", DealCardsHandler(coord))
		})
	})
	return r
}

// corsOrigins turns host patterns into the scheme-qualified origins cors expects.
func corsOrigins(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		if p == "*" {
			return []string{"*"}
		}
		if strings.Contains(p, "://") {
			out = append(out, p)
			continue
		}
		out = append(out, "https://"+p, "http://"+p)
	}
	return out
}

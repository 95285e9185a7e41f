package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, rateLimitRPM int) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(middleware.Heartbeat("/ping"))

	// CORS and rate limiting - configured from main
	r.Use(m.CORS(corsOrigins))
	r.Use(m.RateLimit(rateLimitRPM))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	// v1 API routes
	r.Group(func(r chi.Router) {
		r.Use(m.Compress)
		r.Use(m.Timeout(15 * time.Second))

		r.Route("/v1/bridge", func(r chi.Router) {
			// Mutations
			r.Post("/transfers", h.InitiateTransfer)
			r.Post("/completions", h.CompleteTransfer)
			r.Post("/transfers/{id}/processed", h.MarkProcessed)
			r.Post("/pause", h.TogglePause)
			r.Put("/networks", h.UpdateNetwork)
			r.Post("/withdrawals/emergency", h.EmergencyWithdraw)

			// Queries
			r.Get("/transfers/{id}", h.GetTransfer)
			r.Get("/completions/{txHash}", h.GetCompletion)
			r.Get("/balances/{address}", h.GetBalance)
			r.Get("/networks/{name}", h.GetNetwork)
			r.Get("/stats", h.GetStats)
			r.Get("/custody", h.GetCustody)
		})
	})

	// Live updates; kept outside the timeout and gzip wrappers so the
	// stream can flush.
	r.Get("/v1/events", h.HandleEvents)

	return r
}

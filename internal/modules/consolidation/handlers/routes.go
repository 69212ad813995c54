package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers portfolio routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users/{userID}/portfolio", func(r chi.Router) {
		r.Get("/", h.HandlePortfolio)
		r.Post("/refresh", h.HandleRefresh)
		r.Get("/analytics", h.HandleAnalytics)
		r.Get("/freshness", h.HandleFreshness)
	})
}

package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers broker connection routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users/{userID}/brokers", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleRegister)
	})

	r.Route("/brokers/{connectionID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Patch("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
	})
}

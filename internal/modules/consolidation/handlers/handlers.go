// Package handlers provides HTTP handlers for consolidated portfolio reads.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/modules/consolidation"
)

// Handler handles portfolio HTTP requests.
type Handler struct {
	service *consolidation.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler.
func NewHandler(service *consolidation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandlePortfolio returns the user's consolidated portfolio. The stored
// snapshot is served unless ?refresh=true forces a synchronous cycle.
// A user without active brokers gets the sentinel portfolio with HTTP 200
// and success=false, never an error status.
// GET /api/users/{userID}/portfolio
func (h *Handler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	portfolio, err := h.service.Portfolio(r.Context(), userID, refresh)
	if err != nil && !errors.Is(err, apperrors.ErrNoActiveBrokers) {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, portfolio)
}

// HandleRefresh forces a consolidation cycle for the user.
// POST /api/users/{userID}/portfolio/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	portfolio, err := h.service.Consolidate(r.Context(), userID)
	if err != nil && !errors.Is(err, apperrors.ErrNoActiveBrokers) {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, portfolio)
}

// HandleAnalytics returns derived analytics for the user's portfolio.
// GET /api/users/{userID}/portfolio/analytics
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	analytics, err := h.service.Analytics(r.Context(), userID, refresh)
	if err != nil && !errors.Is(err, apperrors.ErrNoActiveBrokers) {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, analytics)
}

// HandleFreshness returns the per-broker data-age tiers and the portfolio
// tier, recomputed at request time.
// GET /api/users/{userID}/portfolio/freshness
func (h *Handler) HandleFreshness(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	report, err := h.service.Freshness(r.Context(), userID)
	if err != nil && !errors.Is(err, apperrors.ErrNoActiveBrokers) {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidUserID):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Portfolio request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

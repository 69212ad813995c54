// Package handlers provides HTTP handlers for broker connection management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/domain"
	"github.com/niveshio/panorama/internal/modules/brokers"
)

// Handler handles broker connection HTTP requests.
type Handler struct {
	service *brokers.Service
	log     zerolog.Logger
}

// NewHandler creates a new broker connection handler.
func NewHandler(service *brokers.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "brokers").Logger(),
	}
}

type credentialsInput struct {
	APIKey      string `json:"api_key"`
	APISecret   string `json:"api_secret"`
	AccessToken string `json:"access_token"`
}

func (c credentialsInput) toDomain() domain.Credentials {
	return domain.Credentials{
		APIKey:      c.APIKey,
		APISecret:   c.APISecret,
		AccessToken: c.AccessToken,
	}
}

type registerRequest struct {
	BrokerID    string           `json:"broker_id"`
	Label       string           `json:"label"`
	Credentials credentialsInput `json:"credentials"`
}

type updateRequest struct {
	Label       *string           `json:"label,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
	Credentials *credentialsInput `json:"credentials,omitempty"`
}

// HandleList returns all of a user's broker connections.
// GET /api/users/{userID}/brokers
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	connections, err := h.service.List(userID, false)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if connections == nil {
		connections = []brokers.Connection{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections": connections,
		"supported":   domain.SupportedBrokers(),
	})
}

// HandleRegister registers a new broker connection for a user.
// POST /api/users/{userID}/brokers
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conn, err := h.service.Register(userID, req.BrokerID, req.Label, req.Credentials.toDomain())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, conn)
}

// HandleGet returns one broker connection.
// GET /api/brokers/{connectionID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	conn, err := h.service.Get(chi.URLParam(r, "connectionID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, conn)
}

// HandleUpdate applies partial changes to a connection. Absent fields are
// left unchanged; supplying credentials rotates them.
// PATCH /api/brokers/{connectionID}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var creds *domain.Credentials
	if req.Credentials != nil {
		c := req.Credentials.toDomain()
		creds = &c
	}

	conn, err := h.service.Update(chi.URLParam(r, "connectionID"), req.Label, req.Enabled, creds)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, conn)
}

// HandleDelete removes a connection and its stored credentials.
// DELETE /api/brokers/{connectionID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(chi.URLParam(r, "connectionID")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrConnectionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrDuplicateConnection):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrInvalidUserID),
		errors.Is(err, apperrors.ErrInvalidBrokerID),
		errors.Is(err, apperrors.ErrInvalidCredentials):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Broker connection request failed")
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

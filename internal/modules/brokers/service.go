package brokers

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/domain"
)

// Service owns broker connection lifecycle: validation, credential
// encryption, and sync bookkeeping. Handlers and the consolidation service
// go through it rather than the repository.
type Service struct {
	repo   *Repository
	crypto *Crypto
	log    zerolog.Logger
}

// NewService creates a broker connection service.
func NewService(repo *Repository, crypto *Crypto, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		crypto: crypto,
		log:    log.With().Str("service", "brokers").Logger(),
	}
}

// Register validates and stores a new broker connection. The connection
// starts enabled.
func (s *Service) Register(userID, brokerID, label string, creds domain.Credentials) (*Connection, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrInvalidUserID
	}

	brokerID = strings.ToLower(strings.TrimSpace(brokerID))
	if !domain.IsSupportedBroker(brokerID) {
		return nil, fmt.Errorf("broker %q: %w", brokerID, apperrors.ErrInvalidBrokerID)
	}

	if strings.TrimSpace(creds.APIKey) == "" {
		return nil, fmt.Errorf("api key is required: %w", apperrors.ErrInvalidCredentials)
	}

	token, err := s.crypto.Seal(creds)
	if err != nil {
		return nil, err
	}

	conn := &Connection{
		ID:       uuid.New().String(),
		UserID:   userID,
		BrokerID: brokerID,
		Label:    strings.TrimSpace(label),
		Enabled:  true,
	}

	if err := s.repo.Create(conn, token); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", userID).
		Str("broker_id", brokerID).
		Msg("Broker connection registered")

	return conn, nil
}

// Get returns one connection by id.
func (s *Service) Get(id string) (*Connection, error) {
	return s.repo.GetByID(id)
}

// List returns a user's connections.
func (s *Service) List(userID string, enabledOnly bool) ([]Connection, error) {
	return s.repo.ListByUser(userID, enabledOnly)
}

// EnabledForUser returns the user's enabled connections, the set one
// consolidation cycle fans out over.
func (s *Service) EnabledForUser(userID string) ([]Connection, error) {
	return s.repo.ListByUser(userID, true)
}

// UsersWithEnabledConnections returns users the scheduled refresh should cover.
func (s *Service) UsersWithEnabledConnections() ([]string, error) {
	return s.repo.ListUsersWithEnabled()
}

// Credentials decrypts and returns a connection's credentials.
func (s *Service) Credentials(id string) (domain.Credentials, error) {
	token, err := s.repo.GetCredentials(id)
	if err != nil {
		return domain.Credentials{}, err
	}
	return s.crypto.Open(token)
}

// Update applies partial changes. A nil field means "leave unchanged"; creds
// rotation re-encrypts.
func (s *Service) Update(id string, label *string, enabled *bool, creds *domain.Credentials) (*Connection, error) {
	if label != nil || enabled != nil {
		if err := s.repo.Update(id, label, enabled); err != nil {
			return nil, err
		}
	}

	if creds != nil {
		if strings.TrimSpace(creds.APIKey) == "" {
			return nil, fmt.Errorf("api key is required: %w", apperrors.ErrInvalidCredentials)
		}
		token, err := s.crypto.Seal(*creds)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdateCredentials(id, token); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(id)
}

// Remove deletes a connection and its stored credentials.
func (s *Service) Remove(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.log.Info().Str("connection_id", id).Msg("Broker connection removed")
	return nil
}

// MarkSynced records a successful fetch for freshness tracking.
func (s *Service) MarkSynced(id string, at time.Time) error {
	return s.repo.MarkSynced(id, at)
}

// MarkSyncError records a failed fetch. The previous successful sync time is
// preserved so the feed degrades through the freshness tiers instead of
// vanishing.
func (s *Service) MarkSyncError(id string, fetchErr error) error {
	msg := ""
	if fetchErr != nil {
		msg = fetchErr.Error()
	}
	return s.repo.MarkSyncError(id, msg)
}

// Package angelone provides the Angel One SmartAPI adapter for position fetching.
package angelone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/domain"
)

const (
	defaultBaseURL = "https://apiconnect.angelbroking.com"

	holdingsPath = "/rest/secure/angelbroking/portfolio/v1/getHolding"
	fundsPath    = "/rest/secure/angelbroking/user/v1/getRMS"

	// SmartAPI caps portfolio endpoints at 1 request per second.
	minRequestInterval = time.Second
)

// Client fetches holdings and funds from the Angel One SmartAPI.
// SmartAPI encodes most numeric fields as strings; the transformers
// tolerate both encodings.
type Client struct {
	baseURL    string
	httpClient *http.Client
	throttle   *clients.Throttle
	log        zerolog.Logger
}

// NewClient creates a new SmartAPI client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		throttle:   clients.NewThrottle(minRequestInterval),
		log:        log.With().Str("client", "angelone").Logger(),
	}
}

// BrokerID returns the stable broker identifier.
func (c *Client) BrokerID() string {
	return domain.BrokerAngelOne
}

// FetchPositions returns the account's holdings and available cash.
func (c *Client) FetchPositions(ctx context.Context, creds domain.Credentials) (*domain.BrokerSnapshot, error) {
	holdingsPayload, err := c.get(ctx, holdingsPath, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	positions, err := transformHoldings(holdingsPayload)
	if err != nil {
		c.log.Error().Err(err).Msg("FetchPositions: transformHoldings failed")
		return nil, fmt.Errorf("failed to transform holdings: %w", err)
	}

	fundsPayload, err := c.get(ctx, fundsPath, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch funds: %w", err)
	}

	c.log.Debug().Int("positions", len(positions)).Msg("Fetched angelone snapshot")

	return &domain.BrokerSnapshot{
		BrokerID:  domain.BrokerAngelOne,
		Positions: positions,
		Cash:      transformFunds(fundsPayload),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// get performs an authenticated SmartAPI request and unwraps the envelope.
// SmartAPI signals failure with {"status": false} inside an HTTP 200, so
// both layers are checked.
func (c *Client) get(ctx context.Context, path string, creds domain.Credentials) (map[string]interface{}, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-PrivateKey", creds.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("smartapi returned status %d: %w", resp.StatusCode, apperrors.ErrInvalidCredentials)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("smartapi returned status %d: %s", resp.StatusCode, clients.Snippet(body))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if ok, _ := payload["status"].(bool); !ok {
		return nil, fmt.Errorf("smartapi error (%s): %s",
			clients.GetString(payload, "errorcode"), clients.GetString(payload, "message"))
	}

	return payload, nil
}

// Package zerodha provides the Kite Connect adapter for position fetching.
package zerodha

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
	defaultBaseURL = "https://api.kite.trade"
	kiteVersion    = "3"

	// Kite allows 3 requests per second on portfolio endpoints.
	minRequestInterval = 350 * time.Millisecond
)

// Client fetches holdings and cash from the Kite Connect API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	throttle   *clients.Throttle
	log        zerolog.Logger
}

// NewClient creates a new Kite Connect client. Credentials are supplied
// per call, not stored: one client serves every zerodha connection.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		throttle:   clients.NewThrottle(minRequestInterval),
		log:        log.With().Str("client", "zerodha").Logger(),
	}
}

// BrokerID returns the stable broker identifier.
func (c *Client) BrokerID() string {
	return domain.BrokerZerodha
}

// FetchPositions returns the account's holdings and equity cash balance.
func (c *Client) FetchPositions(ctx context.Context, creds domain.Credentials) (*domain.BrokerSnapshot, error) {
	holdingsPayload, err := c.get(ctx, "/portfolio/holdings", creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	positions, err := transformHoldings(holdingsPayload)
	if err != nil {
		c.log.Error().Err(err).Msg("FetchPositions: transformHoldings failed")
		return nil, fmt.Errorf("failed to transform holdings: %w", err)
	}

	marginsPayload, err := c.get(ctx, "/user/margins", creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch margins: %w", err)
	}

	c.log.Debug().Int("positions", len(positions)).Msg("Fetched zerodha snapshot")

	return &domain.BrokerSnapshot{
		BrokerID:  domain.BrokerZerodha,
		Positions: positions,
		Cash:      transformMargins(marginsPayload),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// get performs an authenticated Kite API request and unwraps the envelope.
func (c *Client) get(ctx context.Context, path string, creds domain.Credentials) (map[string]interface{}, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Kite-Version", kiteVersion)
	req.Header.Set("Authorization", "token "+creds.APIKey+":"+creds.AccessToken)

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
		return nil, fmt.Errorf("kite returned status %d: %w", resp.StatusCode, apperrors.ErrInvalidCredentials)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kite returned status %d: %s", resp.StatusCode, clients.Snippet(body))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Kite wraps every response in {"status": "success"|"error", ...}.
	if status := clients.GetString(payload, "status"); status != "success" {
		return nil, fmt.Errorf("kite error (%s): %s",
			clients.GetString(payload, "error_type"), clients.GetString(payload, "message"))
	}

	return payload, nil
}

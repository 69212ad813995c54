// Package upstox provides the Upstox API v2 adapter for position fetching.
package upstox

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
	defaultBaseURL = "https://api.upstox.com/v2"

	// Upstox v2 permits 50 requests per second per token.
	minRequestInterval = 50 * time.Millisecond
)

// Client fetches holdings and funds from the Upstox API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	throttle   *clients.Throttle
	log        zerolog.Logger
}

// NewClient creates a new Upstox client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		throttle:   clients.NewThrottle(minRequestInterval),
		log:        log.With().Str("client", "upstox").Logger(),
	}
}

// BrokerID returns the stable broker identifier.
func (c *Client) BrokerID() string {
	return domain.BrokerUpstox
}

// FetchPositions returns the account's long-term holdings and equity funds.
// Holdings are keyed by instrument token ("NSE_EQ|INE002A01018"); downstream
// normalization resolves the composite to a canonical ticker.
func (c *Client) FetchPositions(ctx context.Context, creds domain.Credentials) (*domain.BrokerSnapshot, error) {
	holdingsPayload, err := c.get(ctx, "/portfolio/long-term-holdings", creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	positions, err := transformHoldings(holdingsPayload)
	if err != nil {
		c.log.Error().Err(err).Msg("FetchPositions: transformHoldings failed")
		return nil, fmt.Errorf("failed to transform holdings: %w", err)
	}

	fundsPayload, err := c.get(ctx, "/user/get-funds-and-margin", creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch funds: %w", err)
	}

	c.log.Debug().Int("positions", len(positions)).Msg("Fetched upstox snapshot")

	return &domain.BrokerSnapshot{
		BrokerID:  domain.BrokerUpstox,
		Positions: positions,
		Cash:      transformFunds(fundsPayload),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// get performs a bearer-authenticated Upstox request and unwraps the envelope.
func (c *Client) get(ctx context.Context, path string, creds domain.Credentials) (map[string]interface{}, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

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
		return nil, fmt.Errorf("upstox returned status %d: %w", resp.StatusCode, apperrors.ErrInvalidCredentials)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstox returned status %d: %s", resp.StatusCode, clients.Snippet(body))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Upstox wraps errors as {"status": "error", "errors": [{"message": ...}]}.
	if status := clients.GetString(payload, "status"); status != "success" {
		return nil, fmt.Errorf("upstox error: %s", firstErrorMessage(payload))
	}

	return payload, nil
}

func firstErrorMessage(payload map[string]interface{}) string {
	for _, item := range clients.GetSlice(payload, "errors") {
		if m, ok := item.(map[string]interface{}); ok {
			if msg := clients.GetString(m, "message"); msg != "" {
				return msg
			}
		}
	}
	return "unknown error"
}

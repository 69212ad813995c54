// Package groww provides the Groww trading API adapter for position fetching.
package groww

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
	defaultBaseURL = "https://api.groww.in"

	holdingsPath = "/v1/holdings/user"
	marginsPath  = "/v1/margins/detail/user"

	// Groww buckets non-order endpoints at roughly 5 requests per second.
	minRequestInterval = 200 * time.Millisecond
)

// Client fetches holdings and margins from the Groww API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	throttle   *clients.Throttle
	log        zerolog.Logger
}

// NewClient creates a new Groww client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		throttle:   clients.NewThrottle(minRequestInterval),
		log:        log.With().Str("client", "groww").Logger(),
	}
}

// BrokerID returns the stable broker identifier.
func (c *Client) BrokerID() string {
	return domain.BrokerGroww
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

	marginsPayload, err := c.get(ctx, marginsPath, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch margins: %w", err)
	}

	c.log.Debug().Int("positions", len(positions)).Msg("Fetched groww snapshot")

	return &domain.BrokerSnapshot{
		BrokerID:  domain.BrokerGroww,
		Positions: positions,
		Cash:      transformMargins(marginsPayload),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// get performs a bearer-authenticated Groww request and unwraps the
// {"status": "SUCCESS", "payload": {...}} envelope.
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
		return nil, fmt.Errorf("groww returned status %d: %w", resp.StatusCode, apperrors.ErrInvalidCredentials)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groww returned status %d: %s", resp.StatusCode, clients.Snippet(body))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if status := clients.GetString(payload, "status"); status != "SUCCESS" {
		errObj := clients.GetMap(payload, "error")
		return nil, fmt.Errorf("groww error (%s): %s",
			clients.GetString(errObj, "code"), clients.GetString(errObj, "message"))
	}

	return payload, nil
}

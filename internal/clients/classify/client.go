// Package classify provides the asset classification lookup. Classes come
// from an external reference data service, never from symbol shape; unknown
// symbols land in the UNCLASSIFIED bucket.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/clientdata"
	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/domain"
)

// Client resolves canonical symbols to asset classes.
// It implements domain.AssetClassifier.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cacheRepo  *clientdata.Repository
	log        zerolog.Logger
}

// cachedClass is the msgpack shape stored in the classifications table.
type cachedClass struct {
	Symbol     string `msgpack:"symbol"`
	AssetClass string `msgpack:"asset_class"`
}

// classifyResponse is the reference data API envelope.
type classifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		Symbol     string `json:"symbol"`
		AssetClass string `json:"asset_class"`
	} `json:"data"`
}

// NewClient creates a new classification client. cacheRepo is optional;
// if nil, caching is disabled.
func NewClient(baseURL, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cacheRepo:  cacheRepo,
		log:        log.With().Str("client", "classify").Logger(),
	}
}

// Classify returns the asset class for a canonical symbol. Unknown symbols
// classify as UNCLASSIFIED; that answer is cached like any other so a cold
// symbol does not hammer the upstream every cycle.
func (c *Client) Classify(ctx context.Context, symbol string) (domain.AssetClass, error) {
	if cached, ok := c.getFromCache(symbol, true); ok {
		return cached, nil
	}

	class, err := c.fetch(ctx, symbol)
	if err != nil {
		if stale, ok := c.getFromCache(symbol, false); ok {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Classification API failed, using stale cached class")
			return stale, nil
		}
		return domain.AssetClassUnclassified, fmt.Errorf("failed to classify %s: %w", symbol, err)
	}

	c.setCache(symbol, class)
	return class, nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (domain.AssetClass, error) {
	requestURL := fmt.Sprintf("%s/v1/instruments/%s/classification", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return domain.AssetClassUnclassified, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AssetClassUnclassified, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.AssetClassUnclassified, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.AssetClassUnclassified, fmt.Errorf("classification API returned status %d: %s", resp.StatusCode, clients.Snippet(body))
	}

	var envelope classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.AssetClassUnclassified, fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Status != "success" {
		return domain.AssetClassUnclassified, fmt.Errorf("classification API error: status %q", envelope.Status)
	}

	if envelope.Data.AssetClass == "" {
		return domain.AssetClassUnclassified, nil
	}
	return domain.AssetClass(envelope.Data.AssetClass), nil
}

func (c *Client) getFromCache(symbol string, freshOnly bool) (domain.AssetClass, bool) {
	if c.cacheRepo == nil {
		return "", false
	}

	var cached cachedClass
	var found bool
	var err error
	if freshOnly {
		found, err = c.cacheRepo.GetIfFresh(clientdata.TableClassifications, symbol, &cached)
	} else {
		found, err = c.cacheRepo.Get(clientdata.TableClassifications, symbol, &cached)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read classification cache")
		return "", false
	}
	if !found || cached.AssetClass == "" {
		return "", false
	}

	return domain.AssetClass(cached.AssetClass), true
}

func (c *Client) setCache(symbol string, class domain.AssetClass) {
	if c.cacheRepo == nil {
		return
	}

	entry := cachedClass{Symbol: symbol, AssetClass: string(class)}
	if err := c.cacheRepo.Store(clientdata.TableClassifications, symbol, entry, clientdata.TTLClassification); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache classification")
	}
}

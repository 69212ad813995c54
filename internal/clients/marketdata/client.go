// Package marketdata provides the quote lookup used to price reconciled
// positions. Lookups are cache-first with a short TTL; when the upstream
// fails, an expired cache entry is served rather than nothing.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/clientdata"
	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/domain"
)

// Client resolves canonical symbols to quotes against a quotes API.
// It implements domain.MarketDataSource.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cacheRepo  *clientdata.Repository
	log        zerolog.Logger
}

// cachedQuote is the msgpack shape stored in the quotes cache table.
type cachedQuote struct {
	Symbol    string  `msgpack:"symbol"`
	Price     float64 `msgpack:"price"`
	PrevClose float64 `msgpack:"prev_close"`
	AsOf      int64   `msgpack:"as_of"`
}

// quoteResponse is the quotes API envelope.
type quoteResponse struct {
	Status string `json:"status"`
	Data   struct {
		Symbol    string  `json:"symbol"`
		Price     float64 `json:"price"`
		PrevClose float64 `json:"prev_close"`
		Timestamp int64   `json:"timestamp"`
	} `json:"data"`
}

// NewClient creates a new quotes client. cacheRepo is optional; if nil,
// caching is disabled and every lookup hits the upstream.
func NewClient(baseURL, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cacheRepo:  cacheRepo,
		log:        log.With().Str("client", "marketdata").Logger(),
	}
}

// GetQuote returns the current quote for a canonical symbol.
// ok=false with a nil error means the symbol is unknown upstream; the
// caller then prices the position from its cost basis.
func (c *Client) GetQuote(ctx context.Context, symbol string) (domain.Quote, bool, error) {
	if cached, ok := c.getFromCache(symbol, true); ok {
		return cached, true, nil
	}

	quote, found, err := c.fetch(ctx, symbol)
	if err != nil {
		// Upstream failed. An expired cache entry is better than no price.
		if stale, ok := c.getFromCache(symbol, false); ok {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Quotes API failed, using stale cached quote")
			return stale, true, nil
		}
		return domain.Quote{}, false, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, err)
	}
	if !found {
		return domain.Quote{}, false, nil
	}

	c.setCache(quote)
	return quote, true, nil
}

// fetch performs the upstream lookup. found=false means the upstream
// answered but has no quote for the symbol.
func (c *Client) fetch(ctx context.Context, symbol string) (domain.Quote, bool, error) {
	requestURL := fmt.Sprintf("%s/v1/quotes/%s", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return domain.Quote{}, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Quote{}, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Quote{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Quote{}, false, fmt.Errorf("quotes API returned status %d: %s", resp.StatusCode, clients.Snippet(body))
	}

	var envelope quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.Quote{}, false, fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Status != "success" {
		return domain.Quote{}, false, fmt.Errorf("quotes API error: status %q", envelope.Status)
	}

	asOf := time.Unix(envelope.Data.Timestamp, 0).UTC()
	if envelope.Data.Timestamp == 0 {
		asOf = time.Now().UTC()
	}

	return domain.Quote{
		Symbol:    envelope.Data.Symbol,
		Price:     envelope.Data.Price,
		PrevClose: envelope.Data.PrevClose,
		AsOf:      asOf,
	}, true, nil
}

func (c *Client) getFromCache(symbol string, freshOnly bool) (domain.Quote, bool) {
	if c.cacheRepo == nil {
		return domain.Quote{}, false
	}

	var cached cachedQuote
	var found bool
	var err error
	if freshOnly {
		found, err = c.cacheRepo.GetIfFresh(clientdata.TableQuotes, symbol, &cached)
	} else {
		found, err = c.cacheRepo.Get(clientdata.TableQuotes, symbol, &cached)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read quote cache")
		return domain.Quote{}, false
	}
	if !found {
		return domain.Quote{}, false
	}

	return domain.Quote{
		Symbol:    cached.Symbol,
		Price:     cached.Price,
		PrevClose: cached.PrevClose,
		AsOf:      time.Unix(cached.AsOf, 0).UTC(),
	}, true
}

func (c *Client) setCache(quote domain.Quote) {
	if c.cacheRepo == nil {
		return
	}

	entry := cachedQuote{
		Symbol:    quote.Symbol,
		Price:     quote.Price,
		PrevClose: quote.PrevClose,
		AsOf:      quote.AsOf.Unix(),
	}
	if err := c.cacheRepo.Store(clientdata.TableQuotes, quote.Symbol, entry, clientdata.TTLQuote); err != nil {
		c.log.Warn().Err(err).Str("symbol", quote.Symbol).Msg("Failed to cache quote")
	}
}

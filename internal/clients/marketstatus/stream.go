// Package marketstatus maintains a live exchange open/closed view over a
// websocket feed. The scheduler reads RefreshInterval from it to pick the
// consolidation cadence; it carries no prices.
package marketstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/niveshio/panorama/internal/clientdata"
	"github.com/niveshio/panorama/internal/domain"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10

	// A status older than this no longer drives the cadence; the clock
	// fallback takes over.
	statusStaleThreshold = 5 * time.Minute
)

// Exchange status values carried on the feed.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// istZone is fixed UTC+5:30. IST has no daylight saving, so a fixed zone
// avoids depending on the host's tzdata.
var istZone = time.FixedZone("IST", 5*3600+30*60)

// ExchangeStatus is one exchange's last known trading state.
type ExchangeStatus struct {
	Exchange  string    `json:"exchange" msgpack:"exchange"`
	Status    string    `json:"status" msgpack:"status"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

// statusUpdate is the feed's market_status frame payload.
type statusUpdate struct {
	Markets []struct {
		Exchange string `json:"exchange"`
		Status   string `json:"status"`
	} `json:"markets"`
	Timestamp string `json:"timestamp"`
}

// Stream is the websocket market status client. A Stream constructed with
// an empty URL stays disconnected and answers from the clock fallback.
type Stream struct {
	url        string
	httpClient *http.Client
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex

	cacheRepo *clientdata.Repository
	log       zerolog.Logger

	openInterval   time.Duration
	closedInterval time.Duration

	connected    bool
	reconnecting bool
	stopChan     chan struct{}
	stopped      bool

	cacheMu    sync.RWMutex
	statuses   map[string]ExchangeStatus
	lastUpdate time.Time
}

// NewStream creates a market status stream. cacheRepo is optional; when
// present, statuses persist across restarts through the market_status table.
func NewStream(url string, openInterval, closedInterval time.Duration, cacheRepo *clientdata.Repository, log zerolog.Logger) *Stream {
	return &Stream{
		url:            url,
		httpClient:     &http.Client{},
		cacheRepo:      cacheRepo,
		log:            log.With().Str("component", "market_status_stream").Logger(),
		openInterval:   openInterval,
		closedInterval: closedInterval,
		statuses:       make(map[string]ExchangeStatus),
		stopChan:       make(chan struct{}),
	}
}

// Start warm-loads persisted statuses and opens the websocket connection.
// A failed initial dial is not fatal: the reconnect loop keeps trying in
// the background while the clock fallback drives the cadence.
func (s *Stream) Start() error {
	s.warmLoad()

	if s.url == "" {
		s.log.Info().Msg("Market status feed not configured, using trading hours fallback")
		return nil
	}

	s.log.Info().Msg("Starting market status stream")

	if err := s.connect(); err != nil {
		s.log.Warn().Err(err).Msg("Initial market status connection failed, will retry in background")
		go s.reconnectLoop()
		return err
	}

	s.mu.RLock()
	ctx := s.connCtx
	s.mu.RUnlock()
	go s.readMessages(ctx)

	return nil
}

// Stop closes the connection and halts reconnection.
func (s *Stream) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
	return s.disconnect()
}

// Status returns one exchange's last known state.
func (s *Stream) Status(exchange string) (ExchangeStatus, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	status, ok := s.statuses[exchange]
	return status, ok
}

// AllStatuses returns a copy of every tracked exchange state.
func (s *Stream) AllStatuses() map[string]ExchangeStatus {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	out := make(map[string]ExchangeStatus, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	return out
}

// IsConnected reports the connection state.
func (s *Stream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// RefreshInterval returns the consolidation cadence for the current market
// state: fast while any tracked exchange is open, slow otherwise. With no
// fresh feed data the Indian cash market session (09:15-15:30 IST, Mon-Fri)
// decides.
func (s *Stream) RefreshInterval(now time.Time) time.Duration {
	s.cacheMu.RLock()
	fresh := !s.lastUpdate.IsZero() && now.Sub(s.lastUpdate) <= statusStaleThreshold
	anyOpen := false
	if fresh {
		for _, status := range s.statuses {
			if status.Status == StatusOpen {
				anyOpen = true
				break
			}
		}
	}
	s.cacheMu.RUnlock()

	if fresh {
		if anyOpen {
			return s.openInterval
		}
		return s.closedInterval
	}

	if inTradingHours(now) {
		return s.openInterval
	}
	return s.closedInterval
}

// inTradingHours reports whether Indian cash markets would be trading at t.
func inTradingHours(t time.Time) bool {
	ist := t.In(istZone)
	switch ist.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minutes := ist.Hour()*60 + ist.Minute()
	return minutes >= 9*60+15 && minutes < 15*60+30
}

// connect dials the feed and subscribes to the market_status channel.
func (s *Stream) connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{
		HTTPClient: s.httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to dial market status feed: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	s.conn = conn
	s.connCtx = connCtx
	s.cancelFunc = connCancel
	s.connected = true

	if err := s.subscribe(connCtx); err != nil {
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		s.conn = nil
		s.connCtx = nil
		s.cancelFunc = nil
		s.connected = false
		return fmt.Errorf("failed to subscribe to market status: %w", err)
	}

	s.log.Info().Msg("Connected to market status feed")
	return nil
}

func (s *Stream) disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	err := s.conn.Close(websocket.StatusNormalClosure, "")
	s.conn = nil
	s.connCtx = nil
	s.connected = false

	if err != nil {
		return fmt.Errorf("error closing market status feed: %w", err)
	}
	return nil
}

func (s *Stream) subscribe(ctx context.Context) error {
	data, err := json.Marshal([]string{"market_status"})
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := s.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send subscription: %w", err)
	}
	return nil
}

// readMessages consumes frames until the connection drops, then hands off
// to the reconnect loop unless the stream was stopped.
func (s *Stream) readMessages(ctx context.Context) {
	defer func() {
		s.mu.RLock()
		stopped := s.stopped
		s.mu.RUnlock()
		if !stopped {
			go s.reconnectLoop()
		}
	}()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				s.log.Info().Msg("Market status feed closed normally")
			} else if ctx.Err() == nil {
				s.log.Error().Err(err).Msg("Market status read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if err := s.handleMessage(message); err != nil {
			s.log.Error().Err(err).Str("message", string(message)).Msg("Failed to handle market status message")
		}
	}
}

// handleMessage parses an ["event", data] frame and applies market_status
// updates to the cache.
func (s *Stream) handleMessage(message []byte) error {
	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil {
		return fmt.Errorf("failed to parse message frame: %w", err)
	}
	if len(frame) < 2 {
		return fmt.Errorf("message frame too short: %d elements", len(frame))
	}

	var channel string
	if err := json.Unmarshal(frame[0], &channel); err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}
	if channel != "market_status" {
		return nil
	}

	var update statusUpdate
	if err := json.Unmarshal(frame[1], &update); err != nil {
		return fmt.Errorf("failed to parse status update: %w", err)
	}
	if len(update.Markets) == 0 {
		return nil
	}

	now := time.Now().UTC()

	s.cacheMu.Lock()
	for _, m := range update.Markets {
		if m.Exchange == "" {
			continue
		}
		s.statuses[m.Exchange] = ExchangeStatus{
			Exchange:  m.Exchange,
			Status:    m.Status,
			UpdatedAt: now,
		}
	}
	s.lastUpdate = now
	snapshot := make([]ExchangeStatus, 0, len(s.statuses))
	for _, v := range s.statuses {
		snapshot = append(snapshot, v)
	}
	s.cacheMu.Unlock()

	s.persist(snapshot)

	s.log.Debug().Int("exchanges", len(update.Markets)).Msg("Market status cache updated")
	return nil
}

// warmLoad seeds the cache from the persisted statuses of the canonical
// exchanges. Only entries still within their TTL are loaded.
func (s *Stream) warmLoad() {
	if s.cacheRepo == nil {
		return
	}

	loaded := 0
	var newest time.Time
	s.cacheMu.Lock()
	for _, exchange := range []string{domain.ExchangeNSE, domain.ExchangeBSE} {
		var status ExchangeStatus
		found, err := s.cacheRepo.GetIfFresh(clientdata.TableMarketStatus, exchange, &status)
		if err != nil || !found {
			continue
		}
		s.statuses[exchange] = status
		if status.UpdatedAt.After(newest) {
			newest = status.UpdatedAt
		}
		loaded++
	}
	if loaded > 0 {
		s.lastUpdate = newest
	}
	s.cacheMu.Unlock()

	if loaded > 0 {
		s.log.Debug().Int("exchanges", loaded).Msg("Warm-loaded market statuses from cache")
	}
}

func (s *Stream) persist(statuses []ExchangeStatus) {
	if s.cacheRepo == nil {
		return
	}

	for _, status := range statuses {
		if err := s.cacheRepo.Store(clientdata.TableMarketStatus, status.Exchange, status, clientdata.TTLMarketStatus); err != nil {
			s.log.Warn().Err(err).Str("exchange", status.Exchange).Msg("Failed to persist market status")
		}
	}
}

// reconnectLoop retries the connection with exponential backoff until it
// succeeds or the stream stops.
func (s *Stream) reconnectLoop() {
	s.mu.Lock()
	if s.reconnecting || s.stopped {
		s.mu.Unlock()
		return
	}
	s.reconnecting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reconnecting = false
		s.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		attempt++
		delay := backoffDelay(attempt)

		if attempt <= maxReconnectAttempts {
			s.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("Reconnecting to market status feed")
		} else {
			s.log.Warn().Int("attempt", attempt).Dur("delay", delay).Msg("Still reconnecting to market status feed")
		}

		select {
		case <-time.After(delay):
		case <-s.stopChan:
			return
		}

		if err := s.connect(); err != nil {
			s.log.Error().Err(err).Int("attempt", attempt).Msg("Market status reconnection failed")
			continue
		}

		s.mu.RLock()
		ctx := s.connCtx
		s.mu.RUnlock()
		go s.readMessages(ctx)
		return
	}
}

// backoffDelay is exponential in the attempt number, capped at the maximum.
func backoffDelay(attempt int) time.Duration {
	delay := float64(baseReconnectDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxReconnectDelay) {
		delay = float64(maxReconnectDelay)
	}
	return time.Duration(delay)
}

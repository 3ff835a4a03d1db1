package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/history"
	"github.com/mohamedkhairy/pattern-scanner/pkg/logger"
)

var (
	// ErrFeedAlreadyStarted is returned when Start is called twice
	ErrFeedAlreadyStarted = errors.New("feed already started")
	// ErrFeedURLMissing is returned when no websocket URL is configured
	ErrFeedURLMissing = errors.New("feed websocket url missing")

	candlesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_candles_received_total",
			Help: "Total number of raw candles received from the feed",
		},
	)

	feedReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_reconnects_total",
			Help: "Total number of feed reconnection attempts",
		},
	)

	feedDecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_decode_errors_total",
			Help: "Total number of undecodable feed messages",
		},
	)
)

// WebSocketFeed streams raw candles from a websocket endpoint with
// automatic reconnection and exponential backoff.
type WebSocketFeed struct {
	cfg     config.FeedConfig
	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWebSocketFeed creates a feed for the configured endpoint
func NewWebSocketFeed(cfg config.FeedConfig) *WebSocketFeed {
	return &WebSocketFeed{cfg: cfg}
}

// Start opens the connection and begins delivering candles. Decode
// failures are counted and skipped; connection loss triggers a
// reconnect with backoff. The channel closes when the feed stops.
func (f *WebSocketFeed) Start(ctx context.Context) (<-chan history.RawCandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		return nil, ErrFeedAlreadyStarted
	}
	if f.cfg.WebSocketURL == "" {
		return nil, ErrFeedURLMissing
	}
	f.started = true

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	out := make(chan history.RawCandle, f.cfg.BufferSize)

	f.wg.Add(1)
	go f.run(ctx, out)

	return out, nil
}

// Close stops the feed and waits for the read loop to exit
func (f *WebSocketFeed) Close() error {
	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	f.wg.Wait()
	return nil
}

// run owns the connect/read/reconnect cycle
func (f *WebSocketFeed) run(ctx context.Context, out chan<- history.RawCandle) {
	defer f.wg.Done()
	defer close(out)

	delay := f.cfg.ReconnectDelay

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.WebSocketURL, nil)
		if err != nil {
			feedReconnects.Inc()
			logger.Warn("Feed connection failed",
				logger.String("url", f.cfg.WebSocketURL),
				logger.Duration("retry_in", delay),
				logger.ErrorField(err),
			)
			if !sleepCtx(ctx, delay) {
				return
			}
			delay = nextDelay(delay, f.cfg.MaxReconnectDelay)
			continue
		}

		logger.Info("Feed connected", logger.String("url", f.cfg.WebSocketURL))
		delay = f.cfg.ReconnectDelay

		if err := f.readLoop(ctx, conn, out); err != nil {
			logger.Warn("Feed connection lost", logger.ErrorField(err))
		}
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		feedReconnects.Inc()
		if !sleepCtx(ctx, delay) {
			return
		}
		delay = nextDelay(delay, f.cfg.MaxReconnectDelay)
	}
}

// readLoop decodes frames until the connection or context ends
func (f *WebSocketFeed) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- history.RawCandle) error {
	// Unblock ReadMessage when the context ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var raw history.RawCandle
		if err := json.Unmarshal(payload, &raw); err != nil {
			feedDecodeErrors.Inc()
			logger.Debug("Undecodable feed message", logger.ErrorField(err))
			continue
		}

		candlesReceived.Inc()
		select {
		case out <- raw:
		case <-ctx.Done():
			return nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if max > 0 && next > max {
		next = max
	}
	return next
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/data"
	"github.com/mohamedkhairy/pattern-scanner/internal/feed"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
	"github.com/mohamedkhairy/pattern-scanner/internal/scanner"
	"github.com/mohamedkhairy/pattern-scanner/internal/session"
	"github.com/mohamedkhairy/pattern-scanner/internal/storage"
	"github.com/mohamedkhairy/pattern-scanner/internal/throttle"
)

type discardEmitter struct{}

func (discardEmitter) Publish(_ context.Context, _ *models.TradeSignal) error { return nil }

func testHandler(store storage.SignalStore) *Handler {
	cfg := &config.Config{
		Engine: config.EngineConfig{
			Watchlist:      []string{"TEST"},
			MaxHistoryBars: 100,
			WorkerCount:    1,
			MinCandleRange: 0.01,
			Timezone:       "America/New_York",
		},
		Confluence: config.ConfluenceConfig{EMAPeriods: []int{20, 50}},
		Harmonic:   config.HarmonicConfig{PatternTTL: time.Hour},
	}

	pipeline := scanner.NewPipeline(
		cfg,
		data.NewMockIndicatorProvider(),
		data.NewStaticAccount(100_000),
		throttle.New(cfg.Throttle, time.UTC),
	)
	classifier := session.NewClassifier(cfg.Session, cfg.Engine.Timezone)
	engine := scanner.NewEngine(cfg, pipeline, classifier, feed.NewReplayFeed(nil, 0), discardEmitter{})

	return NewHandler(engine, store)
}

func TestHealthEndpoint(t *testing.T) {
	h := testHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatsEndpoint(t *testing.T) {
	h := testHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats scanner.EngineStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.NotEmpty(t, stats.CurrentSession)
}

func TestSignalsEndpoint(t *testing.T) {
	store := storage.NewMockSignalStore()
	store.Signals = append(store.Signals, &models.TradeSignal{
		ID:           "sig-1",
		Symbol:       "AAPL",
		Direction:    models.Bullish,
		EntryPrice:   100,
		StopLoss:     98,
		TakeProfit:   104,
		PositionSize: 100,
		Confidence:   0.8,
		Timestamp:    time.Now(),
	})
	h := testHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals/AAPL", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Symbol  string                `json:"symbol"`
		Signals []*models.TradeSignal `json:"signals"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AAPL", body.Symbol)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Signals, 1)
	assert.Equal(t, "sig-1", body.Signals[0].ID)
}

func TestSignalsEndpointBadLimit(t *testing.T) {
	h := testHandler(storage.NewMockSignalStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals/AAPL?limit=zero", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignalsEndpointNoStore(t *testing.T) {
	h := testHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals/AAPL", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
	"github.com/mohamedkhairy/pattern-scanner/internal/storage"
)

func validSignal() *models.TradeSignal {
	return &models.TradeSignal{
		ID:              "sig-1",
		Symbol:          "AAPL",
		Direction:       models.Bullish,
		Confidence:      0.85,
		EntryPrice:      100,
		StopLoss:        98,
		TakeProfit:      104,
		PositionSize:    250,
		PatternLabel:    "2D->2U",
		Reasoning:       "bullish reversal with volume",
		RiskRewardRatio: 2.0,
		Timestamp:       time.Now(),
	}
}

func TestPublishHappyPath(t *testing.T) {
	redis := storage.NewMockRedisClient()
	store := storage.NewMockSignalStore()
	p := NewSignalPublisher(redis, store, "signals")

	err := p.Publish(context.Background(), validSignal())
	require.NoError(t, err)
	assert.Equal(t, 1, redis.PublishedCount("signals"))
	assert.Equal(t, 1, store.SavedCount())
}

func TestPublishRejectsInvalidSignal(t *testing.T) {
	redis := storage.NewMockRedisClient()
	p := NewSignalPublisher(redis, nil, "signals")

	sig := validSignal()
	sig.PositionSize = 0

	err := p.Publish(context.Background(), sig)
	assert.ErrorIs(t, err, models.ErrInvalidSignal)
	assert.Equal(t, 0, redis.PublishedCount("signals"))

	assert.Error(t, p.Publish(context.Background(), nil))
}

func TestPublishRedisFailureStillPersists(t *testing.T) {
	redis := storage.NewMockRedisClient()
	redis.AddErr = errors.New("stream down")
	store := storage.NewMockSignalStore()
	p := NewSignalPublisher(redis, store, "signals")

	err := p.Publish(context.Background(), validSignal())
	assert.Error(t, err)
	assert.Equal(t, 1, store.SavedCount(), "store write is independent of the stream")
}

func TestPublishNilStore(t *testing.T) {
	redis := storage.NewMockRedisClient()
	p := NewSignalPublisher(redis, nil, "signals")

	require.NoError(t, p.Publish(context.Background(), validSignal()))
	assert.Equal(t, 1, redis.PublishedCount("signals"))
}

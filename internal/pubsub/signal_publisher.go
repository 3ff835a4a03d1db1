package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
	"github.com/mohamedkhairy/pattern-scanner/internal/storage"
	"github.com/mohamedkhairy/pattern-scanner/pkg/logger"
)

var (
	signalsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_published_total",
			Help: "Total number of trade signals published",
		},
		[]string{"symbol", "direction"},
	)

	signalPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signal_publish_errors_total",
			Help: "Total number of signal publish errors",
		},
	)

	signalPublishLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signal_publish_latency_seconds",
			Help:    "Signal publish latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
	)
)

// SignalPublisher pushes emitted trade signals to a Redis stream and
// persists them to the signal store. Emission is fire-and-forget from
// the scan pipeline's point of view: failures are logged and counted,
// never propagated back into detection.
type SignalPublisher struct {
	redis   storage.RedisClient
	store   storage.SignalStore
	stream  string
	timeout time.Duration
}

// NewSignalPublisher creates a publisher. The store may be nil when
// persistence is disabled.
func NewSignalPublisher(redis storage.RedisClient, store storage.SignalStore, stream string) *SignalPublisher {
	return &SignalPublisher{
		redis:   redis,
		store:   store,
		stream:  stream,
		timeout: 5 * time.Second,
	}
}

// Publish validates and emits one signal. The Redis publish and the
// store write are independent; either failing leaves the other's
// outcome intact.
func (p *SignalPublisher) Publish(ctx context.Context, signal *models.TradeSignal) error {
	if signal == nil {
		return fmt.Errorf("signal cannot be nil")
	}
	if err := signal.Validate(); err != nil {
		return fmt.Errorf("invalid signal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.redis.PublishToStream(ctx, p.stream, "signal", signal)
	signalPublishLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		signalPublishErrors.Inc()
		logger.Error("Failed to publish signal",
			logger.String("symbol", signal.Symbol),
			logger.String("signal_id", signal.ID),
			logger.ErrorField(err),
		)
	} else {
		signalsPublished.WithLabelValues(signal.Symbol, string(signal.Direction)).Inc()
	}

	if p.store != nil {
		if saveErr := p.store.SaveSignal(ctx, signal); saveErr != nil {
			logger.Error("Failed to persist signal",
				logger.String("symbol", signal.Symbol),
				logger.String("signal_id", signal.ID),
				logger.ErrorField(saveErr),
			)
			if err == nil {
				err = saveErr
			}
		}
	}

	return err
}

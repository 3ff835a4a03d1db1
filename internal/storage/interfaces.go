package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// RedisClient defines the Redis operations the signal pipeline needs
type RedisClient interface {
	// PublishToStream appends one JSON-encoded value to a stream
	PublishToStream(ctx context.Context, stream string, key string, value interface{}) error

	// Ping verifies connectivity
	Ping(ctx context.Context) error

	// Close releases the connection pool
	Close() error
}

// SignalStore persists emitted trade signals for audit and review
type SignalStore interface {
	// SaveSignal inserts one emitted signal
	SaveSignal(ctx context.Context, signal *models.TradeSignal) error

	// GetSignalsBySymbol returns the most recent signals for a symbol,
	// newest first, up to limit.
	GetSignalsBySymbol(ctx context.Context, symbol string, limit int) ([]*models.TradeSignal, error)

	// CountSignalsSince returns how many signals a symbol emitted at or
	// after the cutoff.
	CountSignalsSince(ctx context.Context, symbol string, since time.Time) (int, error)

	// Close releases the underlying pool
	Close() error
}

package storage

import (
	"context"
	"sync"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// MockRedisClient is an in-memory RedisClient for testing
type MockRedisClient struct {
	mu      sync.Mutex
	Streams map[string][]interface{}
	PingErr error
	AddErr  error
	closed  bool
}

// NewMockRedisClient creates an empty mock
func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Streams: make(map[string][]interface{}),
	}
}

// PublishToStream records the value under the stream name
func (m *MockRedisClient) PublishToStream(_ context.Context, stream string, _ string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Streams[stream] = append(m.Streams[stream], value)
	return nil
}

// Ping returns the configured error
func (m *MockRedisClient) Ping(_ context.Context) error {
	return m.PingErr
}

// Close marks the client closed
func (m *MockRedisClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// PublishedCount returns how many values a stream has received
func (m *MockRedisClient) PublishedCount(stream string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Streams[stream])
}

// MockSignalStore is an in-memory SignalStore for testing
type MockSignalStore struct {
	mu      sync.Mutex
	Signals []*models.TradeSignal
	SaveErr error
}

// NewMockSignalStore creates an empty mock
func NewMockSignalStore() *MockSignalStore {
	return &MockSignalStore{}
}

// SaveSignal appends the signal
func (m *MockSignalStore) SaveSignal(_ context.Context, signal *models.TradeSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Signals = append(m.Signals, signal)
	return nil
}

// GetSignalsBySymbol filters the saved signals, newest last as saved
func (m *MockSignalStore) GetSignalsBySymbol(_ context.Context, symbol string, limit int) ([]*models.TradeSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.TradeSignal
	for i := len(m.Signals) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.Signals[i].Symbol == symbol {
			out = append(out, m.Signals[i])
		}
	}
	return out, nil
}

// CountSignalsSince counts saved signals at or after the cutoff
func (m *MockSignalStore) CountSignalsSince(_ context.Context, symbol string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, s := range m.Signals {
		if s.Symbol == symbol && !s.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

// Close is a no-op
func (m *MockSignalStore) Close() error {
	return nil
}

// SavedCount returns the number of saved signals
func (m *MockSignalStore) SavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Signals)
}

package data

import (
	"context"
	"sync"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// MockIndicatorProvider returns canned snapshots for tests
type MockIndicatorProvider struct {
	mu        sync.RWMutex
	snapshots map[string]*models.IndicatorSnapshot
	observed  int
	fetched   int
}

// NewMockIndicatorProvider creates an empty mock
func NewMockIndicatorProvider() *MockIndicatorProvider {
	return &MockIndicatorProvider{
		snapshots: make(map[string]*models.IndicatorSnapshot),
	}
}

// SetSnapshot installs the snapshot returned for symbol
func (m *MockIndicatorProvider) SetSnapshot(symbol string, s *models.IndicatorSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[symbol] = s
}

// Observe counts calls and discards the candle
func (m *MockIndicatorProvider) Observe(_ *models.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed++
	return nil
}

// ObservedCount returns how many candles were fed in
func (m *MockIndicatorProvider) ObservedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.observed
}

// SnapshotCount returns how many snapshot fetches were made
func (m *MockIndicatorProvider) SnapshotCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetched
}

// Snapshot returns the canned snapshot, or ErrSnapshotUnavailable when
// none was installed.
func (m *MockIndicatorProvider) Snapshot(_ context.Context, symbol string) (*models.IndicatorSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched++

	s, ok := m.snapshots[symbol]
	if !ok {
		return nil, ErrSnapshotUnavailable
	}
	return s, nil
}

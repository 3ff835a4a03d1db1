package history

import (
	"errors"
	"sync"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// History is the bounded, insertion-ordered candle window for one
// (symbol, interval) pair. Oldest candles are evicted once the window
// is full. A History is owned by the scan loop for its symbol and must
// not be mutated by anyone else; reads for detection go through
// Snapshot.
type History struct {
	symbol  string
	candles []models.Candle
	maxBars int
}

// NewHistory creates an empty history window
func NewHistory(symbol string, maxBars int) *History {
	if maxBars <= 0 {
		maxBars = 200
	}
	return &History{
		symbol:  symbol,
		candles: make([]models.Candle, 0, maxBars),
		maxBars: maxBars,
	}
}

// Append adds a validated candle. Candles must arrive in strictly
// increasing timestamp order; out-of-order and duplicate timestamps
// are rejected so pattern detection never sees a corrupted sequence.
func (h *History) Append(c *models.Candle) error {
	if c == nil {
		return errors.New("candle cannot be nil")
	}

	if n := len(h.candles); n > 0 {
		last := h.candles[n-1].Timestamp
		if c.Timestamp.Equal(last) {
			return models.ErrDuplicateCandle
		}
		if c.Timestamp.Before(last) {
			return models.ErrOutOfOrderCandle
		}
	}

	h.candles = append(h.candles, *c)
	if len(h.candles) > h.maxBars {
		copy(h.candles, h.candles[1:])
		h.candles = h.candles[:len(h.candles)-1]
	}
	return nil
}

// Len returns the number of candles in the window
func (h *History) Len() int {
	return len(h.candles)
}

// Last returns the most recent n candles (fewer if the window is
// shorter). The returned slice is a copy.
func (h *History) Last(n int) []models.Candle {
	if n <= 0 || len(h.candles) == 0 {
		return nil
	}
	if n > len(h.candles) {
		n = len(h.candles)
	}
	out := make([]models.Candle, n)
	copy(out, h.candles[len(h.candles)-n:])
	return out
}

// Snapshot returns a copy of the full window, oldest first
func (h *History) Snapshot() []models.Candle {
	out := make([]models.Candle, len(h.candles))
	copy(out, h.candles)
	return out
}

// Manager holds the history window for every symbol on the watchlist
type Manager struct {
	mu        sync.RWMutex
	histories map[string]*History
	maxBars   int
}

// NewManager creates a manager with the configured window size
func NewManager(maxBars int) *Manager {
	return &Manager{
		histories: make(map[string]*History),
		maxBars:   maxBars,
	}
}

// GetOrCreate returns the history for symbol, creating it on first use
func (m *Manager) GetOrCreate(symbol string) *History {
	m.mu.RLock()
	h, ok := m.histories[symbol]
	m.mu.RUnlock()
	if ok {
		return h
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.histories[symbol]; ok {
		return h
	}
	h = NewHistory(symbol, m.maxBars)
	m.histories[symbol] = h
	return h
}

// Get returns the history for symbol, or nil if none exists
func (m *Manager) Get(symbol string) *History {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.histories[symbol]
}

// SymbolCount returns the number of tracked symbols
func (m *Manager) SymbolCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.histories)
}

// Remove drops the history for symbol
func (m *Manager) Remove(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, symbol)
}

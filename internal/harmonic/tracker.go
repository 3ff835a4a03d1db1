package harmonic

import (
	"sync"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// Tracker retains the most recent active ABCD pattern per symbol until
// it is superseded by a newer detection or ages out.
type Tracker struct {
	mu     sync.RWMutex
	active map[string]*models.ABCDPattern
	ttl    time.Duration
}

// NewTracker creates a tracker with the given retention
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tracker{
		active: make(map[string]*models.ABCDPattern),
		ttl:    ttl,
	}
}

// Upsert replaces the active pattern for the symbol
func (t *Tracker) Upsert(p *models.ABCDPattern) {
	if p == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[p.Symbol] = p
}

// Get returns the active pattern for symbol, or nil when none is
// active or the retained one has aged out.
func (t *Tracker) Get(symbol string, now time.Time) *models.ABCDPattern {
	t.mu.RLock()
	p, ok := t.active[symbol]
	t.mu.RUnlock()

	if !ok {
		return nil
	}
	if now.Sub(p.DetectedAt) > t.ttl {
		t.mu.Lock()
		// Re-check under the write lock; a newer pattern may have landed
		if cur, ok := t.active[symbol]; ok && now.Sub(cur.DetectedAt) > t.ttl {
			delete(t.active, symbol)
		}
		t.mu.Unlock()
		return nil
	}
	return p
}

// PruneExpired removes every aged-out pattern and returns the count
func (t *Tracker) PruneExpired(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	pruned := 0
	for symbol, p := range t.active {
		if now.Sub(p.DetectedAt) > t.ttl {
			delete(t.active, symbol)
			pruned++
		}
	}
	return pruned
}

// ActiveCount returns the number of retained patterns
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}

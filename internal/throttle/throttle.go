package throttle

import (
	"sync"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
)

// Decision explains why a signal was allowed or suppressed
type Decision string

const (
	Allowed        Decision = "allowed"
	CooldownActive Decision = "cooldown_active"
	DailyCapHit    Decision = "daily_cap_hit"
)

type symbolState struct {
	lastSignal time.Time
	countToday int
	day        time.Time // midnight of the counted day, in zone
}

// Throttle enforces the per-symbol signal budget: a daily cap that
// resets at midnight in the configured zone and a cooldown between
// consecutive signals for the same symbol.
type Throttle struct {
	mu       sync.Mutex
	cfg      config.ThrottleConfig
	location *time.Location
	states   map[string]*symbolState
}

// New creates a throttle. A nil location counts days in UTC.
func New(cfg config.ThrottleConfig, location *time.Location) *Throttle {
	if location == nil {
		location = time.UTC
	}
	return &Throttle{
		cfg:      cfg,
		location: location,
		states:   make(map[string]*symbolState),
	}
}

// Check reports whether a signal for symbol may fire at now, without
// consuming budget.
func (t *Throttle) Check(symbol string, now time.Time) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decide(symbol, now)
}

// Allow reports whether a signal for symbol may fire at now, and
// consumes budget when it may. Callers use this at emission time.
func (t *Throttle) Allow(symbol string, now time.Time) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	decision := t.decide(symbol, now)
	if decision != Allowed {
		return decision
	}

	state := t.states[symbol]
	if state == nil {
		state = &symbolState{}
		t.states[symbol] = state
	}

	day := t.midnight(now)
	if !state.day.Equal(day) {
		state.day = day
		state.countToday = 0
	}

	state.lastSignal = now
	state.countToday++
	return Allowed
}

// decide evaluates both gates under the lock. The day counter is
// compared against the zone-local midnight, so the cap rolls over
// exactly at the day boundary.
func (t *Throttle) decide(symbol string, now time.Time) Decision {
	state, ok := t.states[symbol]
	if !ok {
		return Allowed
	}

	if t.cfg.Cooldown > 0 && !state.lastSignal.IsZero() && now.Sub(state.lastSignal) < t.cfg.Cooldown {
		return CooldownActive
	}

	if state.day.Equal(t.midnight(now)) && state.countToday >= t.cfg.MaxSignalsPerDay {
		return DailyCapHit
	}

	return Allowed
}

func (t *Throttle) midnight(now time.Time) time.Time {
	local := now.In(t.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.location)
}

// CountToday returns the signals consumed by symbol on now's day
func (t *Throttle) CountToday(symbol string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[symbol]
	if !ok || !state.day.Equal(t.midnight(now)) {
		return 0
	}
	return state.countToday
}

// Reset drops all state, for tests and manual intervention
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[string]*symbolState)
}

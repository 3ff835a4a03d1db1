package indicator

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// EMA calculates the Exponential Moving Average of closes.
// EMA = (Price - Previous EMA) * Multiplier + Previous EMA
// Multiplier = 2 / (Period + 1)
type EMA struct {
	period     int
	name       string
	multiplier float64
	value      float64
	ready      bool
	processed  int
}

// NewEMA creates a new EMA calculator with the specified period
func NewEMA(period int) (*EMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("EMA period must be at least 1, got %d", period)
	}

	return &EMA{
		period:     period,
		name:       fmt.Sprintf("ema_%d", period),
		multiplier: 2.0 / float64(period+1),
	}, nil
}

// Name returns the indicator name
func (e *EMA) Name() string {
	return e.name
}

// Update processes a new candle and updates the EMA
func (e *EMA) Update(c *models.Candle) (float64, error) {
	if c == nil {
		return 0, errNilCandle()
	}

	price := c.Close

	// First bar seeds the average
	if !e.ready {
		e.value = price
		e.ready = true
		e.processed++
		return e.value, nil
	}

	e.value = (price-e.value)*e.multiplier + e.value
	e.processed++

	if math.IsNaN(e.value) || math.IsInf(e.value, 0) {
		e.value = price
	}

	return e.value, nil
}

// Value returns the current EMA value
func (e *EMA) Value() (float64, error) {
	if !e.ready {
		return 0, errNotReady(e.name, 1)
	}
	return e.value, nil
}

// Reset clears the rolling state
func (e *EMA) Reset() {
	e.value = 0
	e.ready = false
	e.processed = 0
}

// IsReady reports whether the EMA has a value
func (e *EMA) IsReady() bool {
	return e.ready
}

// Warm reports whether the EMA has seen at least its period of bars.
// Trend-alignment checks want a settled ladder, not the seed value.
func (e *EMA) Warm() bool {
	return e.processed >= e.period
}

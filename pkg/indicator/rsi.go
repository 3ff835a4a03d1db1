package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// RSI calculates the Relative Strength Index.
// RSI = 100 - (100 / (1 + RS)) where RS = Average Gain / Average Loss
// over the period, smoothed with Wilder's method after the seed window.
type RSI struct {
	period    int
	name      string
	prevClose float64
	seeded    bool
	gains     []float64
	losses    []float64
	avgGain   float64
	avgLoss   float64
	ready     bool
	processed int
}

// NewRSI creates a new RSI calculator with the specified period (typically 14)
func NewRSI(period int) (*RSI, error) {
	if period < 2 {
		return nil, fmt.Errorf("RSI period must be at least 2, got %d", period)
	}

	return &RSI{
		period: period,
		name:   fmt.Sprintf("rsi_%d", period),
		gains:  make([]float64, 0, period),
		losses: make([]float64, 0, period),
	}, nil
}

// Name returns the indicator name
func (r *RSI) Name() string {
	return r.name
}

// Update processes a new candle and updates the RSI
func (r *RSI) Update(c *models.Candle) (float64, error) {
	if c == nil {
		return 0, errNilCandle()
	}

	// First bar only establishes the reference close
	if !r.seeded {
		r.prevClose = c.Close
		r.seeded = true
		r.processed++
		return 0, nil
	}

	change := c.Close - r.prevClose
	r.prevClose = c.Close

	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if len(r.gains) < r.period {
		r.gains = append(r.gains, gain)
		r.losses = append(r.losses, loss)
		r.processed++

		if len(r.gains) == r.period {
			var sumGain, sumLoss float64
			for i := range r.gains {
				sumGain += r.gains[i]
				sumLoss += r.losses[i]
			}
			r.avgGain = sumGain / float64(r.period)
			r.avgLoss = sumLoss / float64(r.period)
			r.ready = true
		} else {
			return 0, nil
		}
	} else {
		// Wilder's smoothing:
		// New Avg = ((Old Avg * (Period - 1)) + New Value) / Period
		r.avgGain = ((r.avgGain * float64(r.period-1)) + gain) / float64(r.period)
		r.avgLoss = ((r.avgLoss * float64(r.period-1)) + loss) / float64(r.period)
		r.processed++
	}

	return r.current(), nil
}

func (r *RSI) current() float64 {
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50 // flat series
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - (100 / (1 + rs))
}

// Value returns the current RSI value
func (r *RSI) Value() (float64, error) {
	if !r.ready {
		return 0, errNotReady(r.name, r.period+1)
	}
	return r.current(), nil
}

// Reset clears the rolling state
func (r *RSI) Reset() {
	r.prevClose = 0
	r.seeded = false
	r.gains = r.gains[:0]
	r.losses = r.losses[:0]
	r.avgGain = 0
	r.avgLoss = 0
	r.ready = false
	r.processed = 0
}

// IsReady reports whether the RSI has a value
func (r *RSI) IsReady() bool {
	return r.ready
}

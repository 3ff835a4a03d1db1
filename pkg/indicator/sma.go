package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// SMA calculates a Simple Moving Average over a selectable candle field
type SMA struct {
	period int
	name   string
	source func(*models.Candle) float64
	window []float64
	sum    float64
}

// NewSMA creates a close-price SMA with the specified period
func NewSMA(period int) (*SMA, error) {
	return newSMA(period, "sma", func(c *models.Candle) float64 { return c.Close })
}

// NewVolumeSMA creates a volume SMA with the specified period
func NewVolumeSMA(period int) (*SMA, error) {
	return newSMA(period, "volume_sma", func(c *models.Candle) float64 { return c.Volume })
}

func newSMA(period int, prefix string, source func(*models.Candle) float64) (*SMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("SMA period must be at least 1, got %d", period)
	}

	return &SMA{
		period: period,
		name:   fmt.Sprintf("%s_%d", prefix, period),
		source: source,
		window: make([]float64, 0, period),
	}, nil
}

// Name returns the indicator name
func (s *SMA) Name() string {
	return s.name
}

// Update processes a new candle and updates the average
func (s *SMA) Update(c *models.Candle) (float64, error) {
	if c == nil {
		return 0, errNilCandle()
	}

	v := s.source(c)
	s.window = append(s.window, v)
	s.sum += v

	if len(s.window) > s.period {
		s.sum -= s.window[0]
		copy(s.window, s.window[1:])
		s.window = s.window[:len(s.window)-1]
	}

	if len(s.window) < s.period {
		return 0, nil
	}
	return s.sum / float64(s.period), nil
}

// Value returns the current average
func (s *SMA) Value() (float64, error) {
	if len(s.window) < s.period {
		return 0, errNotReady(s.name, s.period)
	}
	return s.sum / float64(s.period), nil
}

// Reset clears the rolling window
func (s *SMA) Reset() {
	s.window = s.window[:0]
	s.sum = 0
}

// IsReady reports whether the window is full
func (s *SMA) IsReady() bool {
	return len(s.window) >= s.period
}

package indicator

import (
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// TechanCalculator wraps a techan indicator behind the Calculator
// interface, for indicators we do not maintain incrementally
// ourselves. The factory receives the internal TimeSeries so the
// indicator and the series stay bound to each other.
type TechanCalculator struct {
	name      string
	period    int
	barPeriod time.Duration
	factory   func(series *techan.TimeSeries) techan.Indicator
	series    *techan.TimeSeries
	indicator techan.Indicator
	ready     bool
}

// NewTechanCalculator creates a techan-backed calculator. factory is
// called with a fresh series on construction and again on Reset.
func NewTechanCalculator(
	name string,
	period int,
	barPeriod time.Duration,
	factory func(series *techan.TimeSeries) techan.Indicator,
) *TechanCalculator {
	series := techan.NewTimeSeries()

	return &TechanCalculator{
		name:      name,
		period:    period,
		barPeriod: barPeriod,
		factory:   factory,
		series:    series,
		indicator: factory(series),
	}
}

// Name returns the indicator name
func (t *TechanCalculator) Name() string {
	return t.name
}

// Update converts the candle to a techan candle, appends it to the
// series and recalculates the indicator.
func (t *TechanCalculator) Update(c *models.Candle) (float64, error) {
	if c == nil {
		return 0, errNilCandle()
	}

	candle := techan.NewCandle(techan.NewTimePeriod(c.Timestamp, t.barPeriod))
	candle.OpenPrice = big.NewDecimal(c.Open)
	candle.MaxPrice = big.NewDecimal(c.High)
	candle.MinPrice = big.NewDecimal(c.Low)
	candle.ClosePrice = big.NewDecimal(c.Close)
	candle.Volume = big.NewDecimal(c.Volume)

	t.series.AddCandle(candle)

	lastIndex := t.series.LastIndex()
	if lastIndex < 0 {
		return 0, nil
	}

	value := t.indicator.Calculate(lastIndex).Float()
	if value == value { // not NaN
		t.ready = lastIndex+1 >= t.period
		return value, nil
	}
	return 0, nil
}

// Value returns the current indicator value
func (t *TechanCalculator) Value() (float64, error) {
	if !t.ready {
		return 0, errNotReady(t.name, t.period)
	}
	return t.indicator.Calculate(t.series.LastIndex()).Float(), nil
}

// Reset drops the series and rebuilds the indicator against a fresh one
func (t *TechanCalculator) Reset() {
	t.series = techan.NewTimeSeries()
	t.indicator = t.factory(t.series)
	t.ready = false
}

// IsReady reports whether enough bars have been processed
func (t *TechanCalculator) IsReady() bool {
	return t.ready
}

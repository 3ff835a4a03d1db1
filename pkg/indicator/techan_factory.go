package indicator

import (
	"fmt"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// The multi-line indicators (MACD, ATR, Bollinger Bands) are served by
// techan rather than maintained incrementally; only EMA, RSI and the
// SMAs are hand-rolled.

func techanCandle(c *models.Candle, barPeriod time.Duration) *techan.Candle {
	candle := techan.NewCandle(techan.NewTimePeriod(c.Timestamp, barPeriod))
	candle.OpenPrice = big.NewDecimal(c.Open)
	candle.MaxPrice = big.NewDecimal(c.High)
	candle.MinPrice = big.NewDecimal(c.Low)
	candle.ClosePrice = big.NewDecimal(c.Close)
	candle.Volume = big.NewDecimal(c.Volume)
	return candle
}

// NewTechanATR creates a techan-backed ATR calculator. Readiness
// needs period+1 bars: the first true range requires a previous close.
func NewTechanATR(period int, barPeriod time.Duration) (*TechanCalculator, error) {
	if period < 1 {
		return nil, fmt.Errorf("ATR period must be at least 1, got %d", period)
	}

	return NewTechanCalculator(
		fmt.Sprintf("atr_%d", period),
		period+1,
		barPeriod,
		func(series *techan.TimeSeries) techan.Indicator {
			return techan.NewAverageTrueRangeIndicator(series, period)
		},
	), nil
}

// TechanMACD computes the MACD triple over a techan series: the line
// (fast EMA - slow EMA), the signal line (EMA of the line) and the
// histogram (line - signal).
type TechanMACD struct {
	name      string
	fast      int
	slow      int
	signalP   int
	barPeriod time.Duration
	series    *techan.TimeSeries
	line      techan.Indicator
	histogram techan.Indicator
	processed int
}

// NewTechanMACD creates a MACD calculator, typically (12, 26, 9)
func NewTechanMACD(fastPeriod, slowPeriod, signalPeriod int, barPeriod time.Duration) (*TechanMACD, error) {
	if fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("MACD fast period %d must be below slow period %d", fastPeriod, slowPeriod)
	}
	if signalPeriod < 1 {
		return nil, fmt.Errorf("MACD signal period must be at least 1, got %d", signalPeriod)
	}

	m := &TechanMACD{
		name:      fmt.Sprintf("macd_%d_%d_%d", fastPeriod, slowPeriod, signalPeriod),
		fast:      fastPeriod,
		slow:      slowPeriod,
		signalP:   signalPeriod,
		barPeriod: barPeriod,
	}
	m.rebuild()
	return m, nil
}

func (m *TechanMACD) rebuild() {
	m.series = techan.NewTimeSeries()
	closePrice := techan.NewClosePriceIndicator(m.series)
	m.line = techan.NewMACDIndicator(closePrice, m.fast, m.slow)
	m.histogram = techan.NewMACDHistogramIndicator(m.line, m.signalP)
	m.processed = 0
}

// Name returns the metric name
func (m *TechanMACD) Name() string {
	return m.name
}

// Update appends the candle and returns the current MACD line value
func (m *TechanMACD) Update(c *models.Candle) (float64, error) {
	if c == nil {
		return 0, errNilCandle()
	}

	m.series.AddCandle(techanCandle(c, m.barPeriod))
	m.processed++
	return m.line.Calculate(m.series.LastIndex()).Float(), nil
}

// Value returns the MACD line value
func (m *TechanMACD) Value() (float64, error) {
	if !m.IsReady() {
		return 0, errNotReady(m.name, m.slow+m.signalP)
	}
	return m.line.Calculate(m.series.LastIndex()).Float(), nil
}

// Triple returns the full MACD triple for the most recent bar
func (m *TechanMACD) Triple() (models.MACDValue, error) {
	if !m.IsReady() {
		return models.MACDValue{}, errNotReady(m.name, m.slow+m.signalP)
	}

	last := m.series.LastIndex()
	line := m.line.Calculate(last).Float()
	hist := m.histogram.Calculate(last).Float()
	return models.MACDValue{
		MACD:      line,
		Signal:    line - hist,
		Histogram: hist,
	}, nil
}

// Reset drops the series and rebuilds the indicator chain
func (m *TechanMACD) Reset() {
	m.rebuild()
}

// IsReady reports whether the signal line has settled
func (m *TechanMACD) IsReady() bool {
	return m.processed >= m.slow+m.signalP
}

// TechanBollinger computes Bollinger Bands over a techan series: an
// SMA middle band with upper and lower bands sigma standard deviations
// away.
type TechanBollinger struct {
	name      string
	period    int
	sigma     float64
	barPeriod time.Duration
	series    *techan.TimeSeries
	middle    techan.Indicator
	upper     techan.Indicator
	lower     techan.Indicator
	processed int
}

// NewTechanBollinger creates a Bollinger Band calculator, typically (20, 2.0)
func NewTechanBollinger(period int, sigma float64, barPeriod time.Duration) (*TechanBollinger, error) {
	if period < 2 {
		return nil, fmt.Errorf("Bollinger period must be at least 2, got %d", period)
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("Bollinger multiplier must be positive, got %f", sigma)
	}

	b := &TechanBollinger{
		name:      fmt.Sprintf("bb_%d_%.1f", period, sigma),
		period:    period,
		sigma:     sigma,
		barPeriod: barPeriod,
	}
	b.rebuild()
	return b, nil
}

func (b *TechanBollinger) rebuild() {
	b.series = techan.NewTimeSeries()
	closePrice := techan.NewClosePriceIndicator(b.series)
	b.middle = techan.NewSimpleMovingAverage(closePrice, b.period)
	b.upper = techan.NewBollingerUpperBandIndicator(closePrice, b.period, b.sigma)
	b.lower = techan.NewBollingerLowerBandIndicator(closePrice, b.period, b.sigma)
	b.processed = 0
}

// Name returns the metric name
func (b *TechanBollinger) Name() string {
	return b.name
}

// Update appends the candle and returns the middle band value
func (b *TechanBollinger) Update(c *models.Candle) (float64, error) {
	if c == nil {
		return 0, errNilCandle()
	}

	b.series.AddCandle(techanCandle(c, b.barPeriod))
	b.processed++
	return b.middle.Calculate(b.series.LastIndex()).Float(), nil
}

// Value returns the middle band value
func (b *TechanBollinger) Value() (float64, error) {
	if !b.IsReady() {
		return 0, errNotReady(b.name, b.period)
	}
	return b.middle.Calculate(b.series.LastIndex()).Float(), nil
}

// Bands returns all three band levels for the most recent bar
func (b *TechanBollinger) Bands() (models.BollingerValue, error) {
	if !b.IsReady() {
		return models.BollingerValue{}, errNotReady(b.name, b.period)
	}

	last := b.series.LastIndex()
	return models.BollingerValue{
		Upper:  b.upper.Calculate(last).Float(),
		Middle: b.middle.Calculate(last).Float(),
		Lower:  b.lower.Calculate(last).Float(),
	}, nil
}

// Reset drops the series and rebuilds the indicator chain
func (b *TechanBollinger) Reset() {
	b.rebuild()
}

// IsReady reports whether a full window has been processed
func (b *TechanBollinger) IsReady() bool {
	return b.processed >= b.period
}

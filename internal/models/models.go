package models

import (
	"math"
	"time"
)

// Direction is the trade direction implied by a pattern
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Validate validates a Direction
func (d Direction) Validate() error {
	if d != Bullish && d != Bearish {
		return ErrInvalidDirection
	}
	return nil
}

// Opposite returns the opposite direction
func (d Direction) Opposite() Direction {
	if d == Bullish {
		return Bearish
	}
	return Bullish
}

// Candle represents a single validated OHLCV bar
type Candle struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume,omitempty"`
}

// Range returns high minus low
func (c *Candle) Range() float64 {
	return c.High - c.Low
}

// Body returns the absolute open-to-close distance
func (c *Candle) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// UpperWick returns the distance from the body top to the high
func (c *Candle) UpperWick() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

// LowerWick returns the distance from the body bottom to the low
func (c *Candle) LowerWick() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

// IsGreen reports whether the candle closed above its open
func (c *Candle) IsGreen() bool {
	return c.Close > c.Open
}

// Validate checks the structural OHLC invariants
func (c *Candle) Validate() error {
	if c.Symbol == "" {
		return ErrInvalidSymbol
	}
	if c.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonNumeric
		}
	}
	if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
		return ErrInvalidOHLC
	}
	if c.High <= c.Low {
		return ErrInvalidOHLC
	}
	return nil
}

// SwingKind distinguishes swing highs from swing lows
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint is a confirmed local price extremum.
// Derived from a history snapshot, never persisted standalone.
type SwingPoint struct {
	Index     int       `json:"index"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Kind      SwingKind `json:"kind"`
}

// StratPattern is a matched 3-bar transition pattern
// PatternFamily groups detections by the market behavior they express.
// Sessions enable or disable whole families rather than individual
// patterns.
type PatternFamily string

const (
	FamilyReversal     PatternFamily = "reversal"
	FamilyBreakout     PatternFamily = "breakout"
	FamilyContinuation PatternFamily = "continuation"
	FamilyHarmonic     PatternFamily = "harmonic"
)

type StratPattern struct {
	Sequence  string        `json:"sequence"` // e.g. "2D->2U"
	Name      string        `json:"name"`
	Family    PatternFamily `json:"family"`
	Direction Direction     `json:"direction"`
	Strength  float64       `json:"strength"` // 0-100
	Timestamp time.Time     `json:"timestamp"`
}

// FibonacciTargets holds extension levels projected from a harmonic pattern
type FibonacciTargets struct {
	Ext127 float64 `json:"ext_127"`
	Ext161 float64 `json:"ext_161"`
	Ext200 float64 `json:"ext_200"`
	Ext261 float64 `json:"ext_261"`
}

// Levels returns the targets as a slice for tolerance scanning
func (f FibonacciTargets) Levels() []float64 {
	return []float64{f.Ext127, f.Ext161, f.Ext200, f.Ext261}
}

// ConfluenceFlags records which independent confirmations an ABCD pattern carries
type ConfluenceFlags struct {
	TrendAlignment        bool `json:"trend_alignment"`
	VolumeConfirmation    bool `json:"volume_confirmation"`
	TechnicalConfirmation bool `json:"technical_confirmation"`
}

// ABCDPattern is a validated four-point harmonic structure.
// PrimaryTarget is the completion level chosen from the BC retracement
// depth; the deeper the retrace, the nearer the target.
type ABCDPattern struct {
	Symbol        string           `json:"symbol"`
	A             SwingPoint       `json:"a"`
	B             SwingPoint       `json:"b"`
	C             SwingPoint       `json:"c"`
	D             SwingPoint       `json:"d"`
	ABLength      float64          `json:"ab_length"`
	BCLength      float64          `json:"bc_length"`
	CDLength      float64          `json:"cd_length"`
	BCRetrace     float64          `json:"bc_retrace"`
	ABCDRatio     float64          `json:"abcd_ratio"`
	Targets       FibonacciTargets `json:"targets"`
	PrimaryTarget float64          `json:"primary_target"`
	Direction     Direction        `json:"direction"`
	Flags         ConfluenceFlags  `json:"flags"`
	Strength      float64          `json:"strength"` // 0-100
	DetectedAt    time.Time        `json:"detected_at"`
}

// FactorResult is the outcome of one confluence factor evaluation
type FactorResult struct {
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Satisfied bool    `json:"satisfied"`
	Detail    string  `json:"detail,omitempty"`
}

// ConfluenceResult aggregates the per-factor confluence evaluation
type ConfluenceResult struct {
	SatisfiedCount int            `json:"satisfied_count"`
	WeightedScore  float64        `json:"weighted_score"` // 0-100
	Breakdown      []FactorResult `json:"breakdown"`
}

// MACDValue is the standard MACD triple for the most recent bar
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerValue holds Bollinger Band levels for the most recent bar
type BollingerValue struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSnapshot is the technical-indicator view of a symbol's most
// recent bar, supplied by the indicator provider.
type IndicatorSnapshot struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	EMA       map[int]float64 `json:"ema"` // period -> value
	RSI       float64         `json:"rsi"`
	MACD      MACDValue       `json:"macd"`
	VolumeSMA float64         `json:"volume_sma"`
	ATR       float64         `json:"atr"`
	Bollinger BollingerValue  `json:"bollinger"`
}

// TradeSignal is the immutable value object handed to the
// execution/persistence collaborators. Emitted at most once per
// qualifying detection.
type TradeSignal struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Direction       Direction `json:"direction"`
	Confidence      float64   `json:"confidence"` // 0-1
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	PositionSize    float64   `json:"position_size"`
	PatternLabel    string    `json:"pattern_label"`
	Reasoning       string    `json:"reasoning"`
	RiskRewardRatio float64   `json:"risk_reward_ratio"`
	Timestamp       time.Time `json:"timestamp"`
}

// Validate validates a TradeSignal before handoff
func (s *TradeSignal) Validate() error {
	if s.ID == "" {
		return ErrInvalidSignal
	}
	if s.Symbol == "" {
		return ErrInvalidSymbol
	}
	if err := s.Direction.Validate(); err != nil {
		return err
	}
	if s.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	if s.EntryPrice == s.StopLoss {
		return ErrDegenerateRisk
	}
	if s.PositionSize <= 0 {
		return ErrInvalidSignal
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return ErrInvalidSignal
	}
	return nil
}

package history

import (
	"math"
	"strconv"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// RejectReason classifies why a raw candle was not accepted
type RejectReason string

const (
	ReasonNonNumeric      RejectReason = "non-numeric"
	ReasonInvalidOHLC     RejectReason = "invalid-ohlc"
	ReasonSubMinimumRange RejectReason = "sub-minimum-range"
	ReasonOutOfOrder      RejectReason = "out-of-order"
	ReasonDuplicate       RejectReason = "duplicate-timestamp"
)

// Rejection carries the reason a candle was refused. Rejections are
// expected data errors, not failures: the caller logs and moves on.
type Rejection struct {
	Reason RejectReason
	Detail string
}

// RawCandle is an unvalidated OHLCV tuple as delivered by the feed.
// Price and volume fields arrive as strings because providers disagree
// about numeric encodings.
type RawCandle struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Timestamp time.Time `json:"timestamp"`
	Open      string    `json:"open"`
	High      string    `json:"high"`
	Low       string    `json:"low"`
	Close     string    `json:"close"`
	Volume    string    `json:"volume,omitempty"`
}

// Validator normalizes raw OHLCV tuples into validated candles.
// It is pure: no side effects, no logging; the caller decides what to
// do with a Rejection.
type Validator struct {
	minRange float64
}

// NewValidator creates a validator with the configured minimum range
func NewValidator(minRange float64) *Validator {
	return &Validator{minRange: minRange}
}

// Validate parses and checks a raw candle. On success the returned
// Rejection is nil. A rejected candle is simply dropped by the caller;
// it never stops the scanning loop.
func (v *Validator) Validate(raw RawCandle) (*models.Candle, *Rejection) {
	open, ok := parsePrice(raw.Open)
	if !ok {
		return nil, &Rejection{Reason: ReasonNonNumeric, Detail: "open=" + raw.Open}
	}
	high, ok := parsePrice(raw.High)
	if !ok {
		return nil, &Rejection{Reason: ReasonNonNumeric, Detail: "high=" + raw.High}
	}
	low, ok := parsePrice(raw.Low)
	if !ok {
		return nil, &Rejection{Reason: ReasonNonNumeric, Detail: "low=" + raw.Low}
	}
	closePx, ok := parsePrice(raw.Close)
	if !ok {
		return nil, &Rejection{Reason: ReasonNonNumeric, Detail: "close=" + raw.Close}
	}

	volume := 0.0
	if raw.Volume != "" {
		volume, ok = parsePrice(raw.Volume)
		if !ok || volume < 0 {
			return nil, &Rejection{Reason: ReasonNonNumeric, Detail: "volume=" + raw.Volume}
		}
	}

	c := &models.Candle{
		Symbol:    raw.Symbol,
		Interval:  raw.Interval,
		Timestamp: raw.Timestamp,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePx,
		Volume:    volume,
	}

	if err := c.Validate(); err != nil {
		return nil, &Rejection{Reason: ReasonInvalidOHLC, Detail: err.Error()}
	}

	if c.Range() < v.minRange {
		return nil, &Rejection{Reason: ReasonSubMinimumRange}
	}

	return c, nil
}

func parsePrice(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

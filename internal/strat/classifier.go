package strat

import (
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// BarType classifies how a candle's high/low relate to the previous
// candle's (Strat notation: 1 = inside, 2U = up, 2D = down,
// 3 = outside).
type BarType int

const (
	BarNone BarType = iota
	BarInside
	BarUp
	BarDown
	BarOutside
)

// String returns the Strat notation label
func (b BarType) String() string {
	switch b {
	case BarInside:
		return "1"
	case BarUp:
		return "2U"
	case BarDown:
		return "2D"
	case BarOutside:
		return "3"
	default:
		return "none"
	}
}

// Classifier maps two consecutive candles to a BarType. It is total
// and deterministic: every valid candle pair yields exactly one type,
// and BarNone only when prev is undefined.
type Classifier struct {
	// equalTieBreakInside classifies an exact tie on both high and
	// low as Inside. The alternative reading (>= on both sides wins)
	// would call the same pair Up; the tie-break is a policy choice,
	// so it is configurable.
	equalTieBreakInside bool
}

// NewClassifier creates a classifier with the given tie-break policy
func NewClassifier(equalTieBreakInside bool) *Classifier {
	return &Classifier{equalTieBreakInside: equalTieBreakInside}
}

// Classify returns the bar type of curr relative to prev.
// Returns BarNone only when prev is nil (first candle).
func (c *Classifier) Classify(prev, curr *models.Candle) BarType {
	if prev == nil || curr == nil {
		return BarNone
	}

	higherHigh := curr.High > prev.High
	lowerHigh := curr.High < prev.High
	higherLow := curr.Low > prev.Low
	lowerLow := curr.Low < prev.Low

	if !higherHigh && !lowerHigh && !higherLow && !lowerLow {
		// Exact equality on both high and low
		if c.equalTieBreakInside {
			return BarInside
		}
		return BarUp
	}

	switch {
	case higherHigh && lowerLow:
		return BarOutside
	case lowerHigh && higherLow:
		return BarInside
	case !lowerHigh && !lowerLow:
		return BarUp
	default:
		return BarDown
	}
}

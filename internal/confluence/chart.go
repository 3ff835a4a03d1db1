package confluence

import (
	"math"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// ChartPattern is a matched multi-swing structural formation
type ChartPattern struct {
	Name      string
	Direction models.Direction
}

const (
	peakEqualityTolerance = 0.01  // relative distance for "equal" peaks
	headProminence        = 0.005 // head must exceed shoulders by this fraction
	triangleSlopeMin      = 0.002 // converging-side slope per swing pair
)

// DetectChartPatterns inspects the swing sequence for reversal and
// continuation structures. Swings must be ordered by bar index.
func DetectChartPatterns(swings []models.SwingPoint) []ChartPattern {
	var patterns []ChartPattern

	if p := detectDoubleTopBottom(swings); p != nil {
		patterns = append(patterns, *p)
	}
	if p := detectHeadAndShoulders(swings); p != nil {
		patterns = append(patterns, *p)
	}
	if p := detectTriangle(swings); p != nil {
		patterns = append(patterns, *p)
	}

	return patterns
}

// detectDoubleTopBottom matches two near-equal extremes of the same
// kind, in the last three swings of that kind.
func detectDoubleTopBottom(swings []models.SwingPoint) *ChartPattern {
	highs := filterKind(swings, models.SwingHigh)
	lows := filterKind(swings, models.SwingLow)

	if len(highs) >= 2 {
		h1, h2 := highs[len(highs)-2], highs[len(highs)-1]
		if nearlyEqual(h1.Price, h2.Price) {
			return &ChartPattern{Name: "double_top", Direction: models.Bearish}
		}
	}
	if len(lows) >= 2 {
		l1, l2 := lows[len(lows)-2], lows[len(lows)-1]
		if nearlyEqual(l1.Price, l2.Price) {
			return &ChartPattern{Name: "double_bottom", Direction: models.Bullish}
		}
	}
	return nil
}

// detectHeadAndShoulders matches three consecutive peaks where the
// middle one dominates near-equal shoulders, and the inverse on lows.
func detectHeadAndShoulders(swings []models.SwingPoint) *ChartPattern {
	highs := filterKind(swings, models.SwingHigh)
	if len(highs) >= 3 {
		l, h, r := highs[len(highs)-3], highs[len(highs)-2], highs[len(highs)-1]
		if nearlyEqual(l.Price, r.Price) &&
			h.Price > l.Price*(1+headProminence) &&
			h.Price > r.Price*(1+headProminence) {
			return &ChartPattern{Name: "head_and_shoulders", Direction: models.Bearish}
		}
	}

	lows := filterKind(swings, models.SwingLow)
	if len(lows) >= 3 {
		l, h, r := lows[len(lows)-3], lows[len(lows)-2], lows[len(lows)-1]
		if nearlyEqual(l.Price, r.Price) &&
			h.Price < l.Price*(1-headProminence) &&
			h.Price < r.Price*(1-headProminence) {
			return &ChartPattern{Name: "inverse_head_and_shoulders", Direction: models.Bullish}
		}
	}
	return nil
}

// detectTriangle matches a flat side against a converging side over
// the last two highs and lows. Ascending triangles break bullish,
// descending bearish.
func detectTriangle(swings []models.SwingPoint) *ChartPattern {
	highs := filterKind(swings, models.SwingHigh)
	lows := filterKind(swings, models.SwingLow)
	if len(highs) < 2 || len(lows) < 2 {
		return nil
	}

	h1, h2 := highs[len(highs)-2], highs[len(highs)-1]
	l1, l2 := lows[len(lows)-2], lows[len(lows)-1]

	flatHighs := nearlyEqual(h1.Price, h2.Price)
	flatLows := nearlyEqual(l1.Price, l2.Price)
	risingLows := l2.Price > l1.Price*(1+triangleSlopeMin)
	fallingHighs := h2.Price < h1.Price*(1-triangleSlopeMin)

	if flatHighs && risingLows {
		return &ChartPattern{Name: "ascending_triangle", Direction: models.Bullish}
	}
	if flatLows && fallingHighs {
		return &ChartPattern{Name: "descending_triangle", Direction: models.Bearish}
	}
	return nil
}

func filterKind(swings []models.SwingPoint, kind models.SwingKind) []models.SwingPoint {
	out := make([]models.SwingPoint, 0, len(swings))
	for _, s := range swings {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func nearlyEqual(a, b float64) bool {
	base := math.Max(math.Abs(a), math.Abs(b))
	if base == 0 {
		return true
	}
	return math.Abs(a-b)/base <= peakEqualityTolerance
}

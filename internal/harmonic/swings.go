package harmonic

import (
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// ExtractSwings finds confirmed local extrema: a candle is a swing
// high when its high is the strict maximum over a symmetric window of
// window bars each side, and a swing low by the mirrored rule. The
// result is ordered by bar index. With fewer than minBars candles the
// extractor abstains and returns nothing.
func ExtractSwings(bars []models.Candle, window, minBars int) []models.SwingPoint {
	if window < 1 || len(bars) < minBars || len(bars) < 2*window+1 {
		return nil
	}

	swings := make([]models.SwingPoint, 0, 16)

	for i := window; i < len(bars)-window; i++ {
		isHigh := true
		isLow := true

		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if bars[j].High >= bars[i].High {
				isHigh = false
			}
			if bars[j].Low <= bars[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}

		if isHigh {
			swings = append(swings, models.SwingPoint{
				Index:     i,
				Price:     bars[i].High,
				Timestamp: bars[i].Timestamp,
				Kind:      models.SwingHigh,
			})
		}
		if isLow {
			swings = append(swings, models.SwingPoint{
				Index:     i,
				Price:     bars[i].Low,
				Timestamp: bars[i].Timestamp,
				Kind:      models.SwingLow,
			})
		}
	}

	return swings
}

// alternating reports whether four consecutive swings alternate
// between highs and lows, the only shape a leg structure can have.
func alternating(a, b, c, d models.SwingPoint) bool {
	return a.Kind != b.Kind && b.Kind != c.Kind && c.Kind != d.Kind
}

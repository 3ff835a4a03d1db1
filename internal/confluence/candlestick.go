package confluence

import (
	"math"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// CandlePattern is a matched single- or two-bar candlestick formation
type CandlePattern struct {
	Name      string
	Direction models.Direction
}

const (
	dojiBodyFraction   = 0.1 // body vs range
	wickBodyMultiplier = 2.0 // dominant wick vs body
	minorWickFraction  = 0.3 // opposing wick vs range
)

// DetectCandlePatterns evaluates the most recent one or two bars and
// returns every formation that matches. Order is not significant.
func DetectCandlePatterns(bars []models.Candle) []CandlePattern {
	if len(bars) == 0 {
		return nil
	}

	var patterns []CandlePattern

	last := &bars[len(bars)-1]
	if len(bars) >= 2 {
		prev := &bars[len(bars)-2]
		if p := detectEngulfing(prev, last); p != nil {
			patterns = append(patterns, *p)
		}
	}

	if p := detectDoji(last); p != nil {
		patterns = append(patterns, *p)
	}
	if p := detectHammer(last); p != nil {
		patterns = append(patterns, *p)
	}
	if p := detectShootingStar(last); p != nil {
		patterns = append(patterns, *p)
	}

	return patterns
}

// detectEngulfing matches a body that fully contains the prior body
// and closes against it.
func detectEngulfing(prev, cur *models.Candle) *CandlePattern {
	if prev.Body() == 0 || cur.Body() == 0 {
		return nil
	}

	prevTop := math.Max(prev.Open, prev.Close)
	prevBottom := math.Min(prev.Open, prev.Close)
	curTop := math.Max(cur.Open, cur.Close)
	curBottom := math.Min(cur.Open, cur.Close)

	if curTop <= prevTop || curBottom >= prevBottom {
		return nil
	}

	if cur.IsGreen() && !prev.IsGreen() {
		return &CandlePattern{Name: "bullish_engulfing", Direction: models.Bullish}
	}
	if !cur.IsGreen() && prev.IsGreen() {
		return &CandlePattern{Name: "bearish_engulfing", Direction: models.Bearish}
	}
	return nil
}

// detectDoji matches a near-zero body. A doji signals indecision, so
// it leans against the prior bar's direction.
func detectDoji(c *models.Candle) *CandlePattern {
	r := c.Range()
	if r <= 0 || c.Body() > r*dojiBodyFraction {
		return nil
	}

	direction := models.Bearish
	if !c.IsGreen() {
		direction = models.Bullish
	}
	return &CandlePattern{Name: "doji", Direction: direction}
}

// detectHammer matches a long lower wick with a small body near the top
func detectHammer(c *models.Candle) *CandlePattern {
	body := c.Body()
	r := c.Range()
	if body == 0 || r <= 0 {
		return nil
	}
	if c.LowerWick() < body*wickBodyMultiplier {
		return nil
	}
	if c.UpperWick() > r*minorWickFraction {
		return nil
	}
	return &CandlePattern{Name: "hammer", Direction: models.Bullish}
}

// detectShootingStar is the hammer mirrored: long upper wick, small
// body near the low.
func detectShootingStar(c *models.Candle) *CandlePattern {
	body := c.Body()
	r := c.Range()
	if body == 0 || r <= 0 {
		return nil
	}
	if c.UpperWick() < body*wickBodyMultiplier {
		return nil
	}
	if c.LowerWick() > r*minorWickFraction {
		return nil
	}
	return &CandlePattern{Name: "shooting_star", Direction: models.Bearish}
}

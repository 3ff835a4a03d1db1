package harmonic

import (
	"math"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// Detector validates four-point ABCD structures against Fibonacci leg
// ratios and projects extension targets.
type Detector struct {
	cfg config.HarmonicConfig
}

// NewDetector creates a detector with the given thresholds
func NewDetector(cfg config.HarmonicConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect extracts swings from bars and scans consecutive swing groups
// (A,B,C,D) from the most recent backward, over at most MaxSwingGroups
// groups. Returns the validated patterns, most recent first. With
// insufficient history it abstains and returns nothing.
func (d *Detector) Detect(symbol string, bars []models.Candle, now time.Time) []*models.ABCDPattern {
	swings := ExtractSwings(bars, d.cfg.SwingWindow, d.cfg.MinHistoryBars)
	if len(swings) < 4 {
		return nil
	}

	var patterns []*models.ABCDPattern

	groups := 0
	for i := len(swings) - 4; i >= 0 && groups < d.cfg.MaxSwingGroups; i-- {
		groups++

		a, b, c, dd := swings[i], swings[i+1], swings[i+2], swings[i+3]
		if !alternating(a, b, c, dd) {
			continue
		}

		if p := d.validate(symbol, a, b, c, dd, now); p != nil {
			patterns = append(patterns, p)
		}
	}

	return patterns
}

// validate applies the ratio gates to one swing group and builds the
// pattern when every gate passes.
func (d *Detector) validate(symbol string, a, b, c, dd models.SwingPoint, now time.Time) *models.ABCDPattern {
	abLength := math.Abs(b.Price - a.Price)
	bcLength := math.Abs(c.Price - b.Price)
	cdLength := math.Abs(dd.Price - c.Price)

	if abLength == 0 {
		return nil
	}

	// Legs must be meaningful relative to price
	minLeg := dd.Price * d.cfg.MinSwingFraction
	if abLength < minLeg || cdLength < minLeg {
		return nil
	}

	bcRetrace := bcLength / abLength
	if bcRetrace < d.cfg.BCRetraceMin || bcRetrace > d.cfg.BCRetraceMax {
		return nil
	}

	abcdRatio := cdLength / abLength
	if abcdRatio < d.cfg.ABCDRatioMin || abcdRatio > d.cfg.ABCDRatioMax {
		return nil
	}

	// The completion target depends on how deep BC retraced AB
	var targetRatio float64
	switch {
	case bcRetrace <= 0.618:
		targetRatio = 1.618
	case bcRetrace <= 0.786:
		targetRatio = 1.27
	case bcRetrace <= 0.886:
		targetRatio = 1.0
	default:
		return nil
	}
	direction := models.Bearish
	if a.Price < b.Price {
		direction = models.Bullish
	}

	sign := 1.0
	if direction == models.Bearish {
		sign = -1.0
	}
	targets := models.FibonacciTargets{
		Ext127: c.Price + sign*abLength*1.27,
		Ext161: c.Price + sign*abLength*1.618,
		Ext200: c.Price + sign*abLength*2.0,
		Ext261: c.Price + sign*abLength*2.618,
	}

	pattern := &models.ABCDPattern{
		Symbol:        symbol,
		A:             a,
		B:             b,
		C:             c,
		D:             dd,
		ABLength:      abLength,
		BCLength:      bcLength,
		CDLength:      cdLength,
		BCRetrace:     bcRetrace,
		ABCDRatio:     abcdRatio,
		Targets:       targets,
		PrimaryTarget: c.Price + sign*abLength*targetRatio,
		Direction:     direction,
		DetectedAt:    now,
	}
	pattern.Strength = d.scoreStrength(pattern)

	return pattern
}

// FibConfluence reports whether price sits within the configured
// tolerance of any projected extension target.
func (d *Detector) FibConfluence(p *models.ABCDPattern, price float64) bool {
	if p == nil || price <= 0 {
		return false
	}
	tolerance := price * d.cfg.FibTolerance
	for _, level := range p.Targets.Levels() {
		if math.Abs(price-level) <= tolerance {
			return true
		}
	}
	return false
}

// scoreStrength rates structural quality in [0,100]. Composite
// confluence is scored separately; this only reflects the geometry.
func (d *Detector) scoreStrength(p *models.ABCDPattern) float64 {
	strength := 60.0

	// AB=CD symmetry
	if p.ABCDRatio >= 0.9 && p.ABCDRatio <= 1.1 {
		strength += 12
	} else if p.ABCDRatio >= 0.786 && p.ABCDRatio <= 1.27 {
		strength += 6
	}

	// Golden-pocket retracement
	if p.BCRetrace >= 0.5 && p.BCRetrace <= 0.786 {
		strength += 10
	}

	// D completing at a projected target
	if d.FibConfluence(p, p.D.Price) {
		strength += 15
	}

	// Leg proportion sanity: CD should not dwarf BC
	if p.BCLength > 0 && p.CDLength/p.BCLength <= 3.0 {
		strength += 3
	}

	if strength > 100 {
		strength = 100
	}
	return strength
}

// MinStrength exposes the configured eligibility floor
func (d *Detector) MinStrength() float64 {
	return d.cfg.MinStrength
}

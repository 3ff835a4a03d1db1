package strat

import (
	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// transition identifies a (bar1->bar2, bar2->bar3) type pair
type transition struct {
	first, second BarType
}

// patternDef names a matched transition pair
type patternDef struct {
	name      string
	family    models.PatternFamily
	direction models.Direction
}

// patternTable is the fixed transition table. Unmatched pairs are not
// an error; they simply produce no pattern.
var patternTable = map[transition]patternDef{
	{BarDown, BarUp}:      {"Bullish Reversal", models.FamilyReversal, models.Bullish},
	{BarUp, BarDown}:      {"Bearish Reversal", models.FamilyReversal, models.Bearish},
	{BarInside, BarUp}:    {"Inside Bar Breakout", models.FamilyBreakout, models.Bullish},
	{BarInside, BarDown}:  {"Inside Bar Breakdown", models.FamilyBreakout, models.Bearish},
	{BarOutside, BarUp}:   {"Outside Bar Continuation", models.FamilyContinuation, models.Bullish},
	{BarOutside, BarDown}: {"Outside Bar Continuation", models.FamilyContinuation, models.Bearish},
}

// Recognizer matches 3-candle windows against the Strat transition
// table and scores matches. Detection is a pure function of the
// window: re-evaluating an unchanged window yields the same result.
type Recognizer struct {
	cfg        config.PatternConfig
	classifier *Classifier
}

// NewRecognizer creates a recognizer with the given thresholds
func NewRecognizer(cfg config.PatternConfig) *Recognizer {
	return &Recognizer{
		cfg:        cfg,
		classifier: NewClassifier(cfg.EqualTieBreakInside),
	}
}

// Classifier exposes the recognizer's bar-type classifier
func (r *Recognizer) Classifier() *Classifier {
	return r.classifier
}

// Detect runs the transition table against the last three candles of
// bars. Returns nil when the window is too short, the pair is
// unmatched, or the scored strength falls below the configured floor.
func (r *Recognizer) Detect(bars []models.Candle) *models.StratPattern {
	if len(bars) < 3 {
		return nil
	}

	b1 := bars[len(bars)-3]
	b2 := bars[len(bars)-2]
	b3 := bars[len(bars)-1]

	t1 := r.classifier.Classify(&b1, &b2)
	t2 := r.classifier.Classify(&b2, &b3)

	def, ok := patternTable[transition{t1, t2}]
	if !ok {
		return nil
	}

	// The floor applies to the base score; secondary confirmations can
	// only raise patterns that already cleared it.
	strength := r.score(def.direction, b1, b2, b3)
	if strength < r.cfg.MinStrength {
		return nil
	}
	strength = r.confidencePass(strength, def.direction, b1, b2, b3)

	return &models.StratPattern{
		Sequence:  t1.String() + "->" + t2.String(),
		Name:      def.name,
		Family:    def.family,
		Direction: def.direction,
		Strength:  strength,
		Timestamp: b3.Timestamp,
	}
}

// score computes the base strength: 50 plus confirmation bonuses
func (r *Recognizer) score(dir models.Direction, b1, b2, b3 models.Candle) float64 {
	strength := 50.0

	if b2.Volume > 0 && b3.Volume/b2.Volume > r.cfg.VolumeRatioThreshold {
		strength += 10
	}

	if b3.Range() > b2.Range()*r.cfg.RangeExpansionFactor {
		strength += 8
	}

	if (dir == models.Bullish && b3.IsGreen()) || (dir == models.Bearish && b3.Close < b3.Open) {
		strength += 5
	}

	// Momentum through the prior bar's extreme
	if (dir == models.Bullish && b3.Close > b2.High) || (dir == models.Bearish && b3.Close < b2.Low) {
		strength += 12
	}

	return strength
}

// confidencePass layers secondary confirmations on top of the base
// score, capped at 100.
func (r *Recognizer) confidencePass(strength float64, dir models.Direction, b1, b2, b3 models.Candle) float64 {
	if b2.Volume > 0 {
		ratio := b3.Volume / b2.Volume
		if ratio > 1.5 {
			strength += 10
		} else if ratio > 1.2 {
			strength += 5
		}
	}

	avgRange := (b1.Range() + b2.Range() + b3.Range()) / 3.0
	if b3.Range() > avgRange {
		strength += 8
	}

	if (dir == models.Bullish && b3.Close > b2.Close) || (dir == models.Bearish && b3.Close < b2.Close) {
		strength += 5
	}

	// Naive trend alignment: sign of the total 3-bar price change
	change := b3.Close - b1.Close
	if (dir == models.Bullish && change > 0) || (dir == models.Bearish && change < 0) {
		strength += 3
	}

	if strength > 100 {
		strength = 100
	}
	return strength
}

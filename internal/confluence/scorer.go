package confluence

import (
	"fmt"
	"sort"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// FibChecker reports whether a price sits at one of a harmonic
// pattern's projected targets.
type FibChecker interface {
	FibConfluence(p *models.ABCDPattern, price float64) bool
}

// Input carries everything one confluence evaluation needs. Harmonic
// and Snapshot may be nil; the corresponding factors then fail.
type Input struct {
	Direction models.Direction
	Price     float64
	Bars      []models.Candle
	Swings    []models.SwingPoint
	Snapshot  *models.IndicatorSnapshot
	Harmonic  *models.ABCDPattern
}

// Scorer evaluates the six independent confirmation factors and folds
// them into a weighted composite.
type Scorer struct {
	cfg config.ConfluenceConfig
	fib FibChecker
}

// NewScorer creates a scorer with the given weights and thresholds
func NewScorer(cfg config.ConfluenceConfig, fib FibChecker) *Scorer {
	return &Scorer{cfg: cfg, fib: fib}
}

// Evaluate runs every factor and returns the satisfied count, the
// weighted score and the per-factor breakdown. The weighted score is
// the satisfied weight sum scaled by 10 and capped at 100.
func (s *Scorer) Evaluate(in Input) models.ConfluenceResult {
	factors := []models.FactorResult{
		s.fibonacciFactor(in),
		s.trendFactor(in),
		s.volumeFactor(in),
		s.technicalFactor(in),
		s.rsiFactor(in),
		s.macdFactor(in),
	}

	result := models.ConfluenceResult{Breakdown: factors}
	for _, f := range factors {
		if f.Satisfied {
			result.SatisfiedCount++
			result.WeightedScore += f.Weight * 10
		}
	}
	if result.WeightedScore > 100 {
		result.WeightedScore = 100
	}
	return result
}

// Eligible applies both floors: factor count and weighted score
func (s *Scorer) Eligible(r models.ConfluenceResult) bool {
	return r.SatisfiedCount >= s.cfg.MinSatisfied && r.WeightedScore >= s.cfg.MinWeightedScore
}

// fibonacciFactor passes when an active same-direction harmonic
// pattern projects a target at the current price.
func (s *Scorer) fibonacciFactor(in Input) models.FactorResult {
	f := models.FactorResult{Name: "fibonacci", Weight: s.cfg.WeightFibonacci}
	if in.Harmonic == nil || in.Harmonic.Direction != in.Direction || s.fib == nil {
		f.Detail = "no active harmonic pattern"
		return f
	}
	if s.fib.FibConfluence(in.Harmonic, in.Price) {
		f.Satisfied = true
		f.Detail = "price at projected extension"
	} else {
		f.Detail = "price away from extensions"
	}
	return f
}

// trendFactor passes when price and the EMA ladder are stacked in
// trade direction: bullish needs price above the fastest EMA and each
// faster EMA above the slower one, bearish mirrored.
func (s *Scorer) trendFactor(in Input) models.FactorResult {
	f := models.FactorResult{Name: "trend", Weight: s.cfg.WeightTrend}
	if in.Snapshot == nil || len(s.cfg.EMAPeriods) < 2 {
		f.Detail = "ema ladder unavailable"
		return f
	}

	periods := append([]int(nil), s.cfg.EMAPeriods...)
	sort.Ints(periods)

	values := make([]float64, 0, len(periods)+1)
	values = append(values, in.Price)
	for _, p := range periods {
		v, ok := in.Snapshot.EMA[p]
		if !ok {
			f.Detail = fmt.Sprintf("ema %d missing", p)
			return f
		}
		values = append(values, v)
	}

	aligned := true
	for i := 1; i < len(values); i++ {
		if in.Direction == models.Bullish && values[i-1] <= values[i] {
			aligned = false
			break
		}
		if in.Direction == models.Bearish && values[i-1] >= values[i] {
			aligned = false
			break
		}
	}

	f.Satisfied = aligned
	if aligned {
		f.Detail = "price and ema ladder stacked with trade"
	} else {
		f.Detail = "price or ema ladder against trade"
	}
	return f
}

// volumeFactor passes when the latest bar trades above the volume SMA
// by the configured multiple.
func (s *Scorer) volumeFactor(in Input) models.FactorResult {
	f := models.FactorResult{Name: "volume", Weight: s.cfg.WeightVolume}
	if in.Snapshot == nil || in.Snapshot.VolumeSMA <= 0 || len(in.Bars) == 0 {
		f.Detail = "volume baseline unavailable"
		return f
	}

	last := in.Bars[len(in.Bars)-1]
	threshold := in.Snapshot.VolumeSMA * s.cfg.VolumeMultiplier
	f.Satisfied = last.Volume > threshold
	f.Detail = fmt.Sprintf("volume %.0f vs threshold %.0f", last.Volume, threshold)
	return f
}

// technicalFactor passes when any candlestick or chart formation
// agrees with the trade direction.
func (s *Scorer) technicalFactor(in Input) models.FactorResult {
	f := models.FactorResult{Name: "technical", Weight: s.cfg.WeightTechnical}

	for _, p := range DetectCandlePatterns(in.Bars) {
		if p.Direction == in.Direction {
			f.Satisfied = true
			f.Detail = p.Name
			return f
		}
	}
	for _, p := range DetectChartPatterns(in.Swings) {
		if p.Direction == in.Direction {
			f.Satisfied = true
			f.Detail = p.Name
			return f
		}
	}

	f.Detail = "no agreeing formation"
	return f
}

// rsiFactor passes when RSI sits inside the direction's band: strong
// but not exhausted.
func (s *Scorer) rsiFactor(in Input) models.FactorResult {
	f := models.FactorResult{Name: "rsi", Weight: s.cfg.WeightRSI}
	if in.Snapshot == nil {
		f.Detail = "rsi unavailable"
		return f
	}

	rsi := in.Snapshot.RSI
	if in.Direction == models.Bullish {
		f.Satisfied = rsi >= s.cfg.RSIBullishMin && rsi <= s.cfg.RSIBullishMax
	} else {
		f.Satisfied = rsi >= s.cfg.RSIBearishMin && rsi <= s.cfg.RSIBearishMax
	}
	f.Detail = fmt.Sprintf("rsi %.1f", rsi)
	return f
}

// macdFactor passes when both the histogram sign and the MACD/signal
// ordering agree with the trade direction.
func (s *Scorer) macdFactor(in Input) models.FactorResult {
	f := models.FactorResult{Name: "macd", Weight: s.cfg.WeightMACD}
	if in.Snapshot == nil {
		f.Detail = "macd unavailable"
		return f
	}

	m := in.Snapshot.MACD
	if in.Direction == models.Bullish {
		f.Satisfied = m.Histogram > 0 && m.MACD > m.Signal
	} else {
		f.Satisfied = m.Histogram < 0 && m.MACD < m.Signal
	}
	f.Detail = fmt.Sprintf("histogram %.4f", m.Histogram)
	return f
}

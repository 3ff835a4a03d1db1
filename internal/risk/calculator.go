package risk

import (
	"math"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// Request carries everything one trade-level computation needs.
// Anchor is the structural stop reference, normally the extreme of the
// pattern that produced the candidate. StratAt and HarmonicAt are the
// detection times of the two pattern engines; the agreement bonus
// applies when both are set and close together.
type Request struct {
	Symbol                string
	Direction             models.Direction
	Entry                 float64
	Anchor                float64
	ATR                   float64
	Equity                float64
	SessionRiskMultiplier float64
	Confidence            float64 // composite confidence in [0,1]
	StratAt               time.Time
	HarmonicAt            time.Time
}

// Levels is the computed trade geometry
type Levels struct {
	StopLoss     float64
	TakeProfit   float64
	PositionSize float64 // shares
	RiskReward   float64
	Confidence   float64
}

// Calculator derives stop, target, size and final confidence from a
// candidate signal.
type Calculator struct {
	cfg config.RiskConfig
}

// NewCalculator creates a calculator with the given risk parameters
func NewCalculator(cfg config.RiskConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Build computes trade levels for the request. The risk distance must
// be strictly positive and the stop must sit on the protective side of
// the entry; otherwise it returns ErrDegenerateRisk and the zero
// Levels, which carries PositionSize 0.
func (c *Calculator) Build(req Request) (Levels, error) {
	if err := req.Direction.Validate(); err != nil {
		return Levels{}, err
	}
	if req.Entry <= 0 || req.Equity <= 0 {
		return Levels{}, models.ErrDegenerateRisk
	}

	stop := c.stopLoss(req)
	riskPerShare := math.Abs(req.Entry - stop)
	if riskPerShare == 0 {
		return Levels{}, models.ErrDegenerateRisk
	}
	if req.Direction == models.Bullish && stop >= req.Entry {
		return Levels{}, models.ErrDegenerateRisk
	}
	if req.Direction == models.Bearish && stop <= req.Entry {
		return Levels{}, models.ErrDegenerateRisk
	}

	target := req.Entry + riskPerShare*c.cfg.RiskRewardRatio
	if req.Direction == models.Bearish {
		target = req.Entry - riskPerShare*c.cfg.RiskRewardRatio
	}

	multiplier := req.SessionRiskMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	riskBudget := req.Equity * c.cfg.MaxRiskPerTrade * multiplier
	size := riskBudget / riskPerShare

	// Clamp notional exposure to the configured equity fraction
	maxShares := req.Equity * c.cfg.MaxPositionSize / req.Entry
	if size > maxShares {
		size = maxShares
	}
	if size <= 0 {
		return Levels{}, models.ErrDegenerateRisk
	}

	return Levels{
		StopLoss:     stop,
		TakeProfit:   target,
		PositionSize: size,
		RiskReward:   c.cfg.RiskRewardRatio,
		Confidence:   c.confidence(req),
	}, nil
}

// stopLoss places the stop by policy: beyond the structural anchor
// with a small buffer, or an ATR multiple from entry.
func (c *Calculator) stopLoss(req Request) float64 {
	if c.cfg.StopPolicy == "atr" && req.ATR > 0 {
		offset := req.ATR * c.cfg.ATRMultiplier
		if req.Direction == models.Bullish {
			return req.Entry - offset
		}
		return req.Entry + offset
	}

	if req.Direction == models.Bullish {
		return req.Anchor * (1 - c.cfg.StopBufferFraction)
	}
	return req.Anchor * (1 + c.cfg.StopBufferFraction)
}

// confidence applies the agreement bonus when both engines detected
// within the configured window, clamped to [0,1].
func (c *Calculator) confidence(req Request) float64 {
	conf := req.Confidence

	if !req.StratAt.IsZero() && !req.HarmonicAt.IsZero() {
		gap := req.StratAt.Sub(req.HarmonicAt)
		if gap < 0 {
			gap = -gap
		}
		if gap <= c.cfg.AgreementWindow {
			conf += c.cfg.AgreementBonus
		}
	}

	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

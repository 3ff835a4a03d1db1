package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/confluence"
	"github.com/mohamedkhairy/pattern-scanner/internal/data"
	"github.com/mohamedkhairy/pattern-scanner/internal/harmonic"
	"github.com/mohamedkhairy/pattern-scanner/internal/history"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
	"github.com/mohamedkhairy/pattern-scanner/internal/risk"
	"github.com/mohamedkhairy/pattern-scanner/internal/session"
	"github.com/mohamedkhairy/pattern-scanner/internal/strat"
	"github.com/mohamedkhairy/pattern-scanner/internal/throttle"
	"github.com/mohamedkhairy/pattern-scanner/pkg/logger"
	"github.com/mohamedkhairy/pattern-scanner/pkg/ratelimit"
)

// minPatternBars is the 3-bar transition window
const minPatternBars = 3

// Pipeline runs the full per-symbol detection chain: pattern
// recognition, harmonic tracking, confluence scoring, throttling and
// risk sizing. One pipeline is shared by all workers; every
// collaborator is safe for concurrent use.
type Pipeline struct {
	cfg        *config.Config
	validator  *history.Validator
	histories  *history.Manager
	recognizer *strat.Recognizer
	detector   *harmonic.Detector
	tracker    *harmonic.Tracker
	scorer     *confluence.Scorer
	indicators data.IndicatorProvider
	account    data.AccountProvider
	calculator *risk.Calculator
	throttle   *throttle.Throttle
	limiter    *ratelimit.Limiter
}

// NewPipeline wires the detection chain from configuration
func NewPipeline(
	cfg *config.Config,
	indicators data.IndicatorProvider,
	account data.AccountProvider,
	signalThrottle *throttle.Throttle,
) *Pipeline {
	detector := harmonic.NewDetector(cfg.Harmonic)

	return &Pipeline{
		cfg:        cfg,
		validator:  history.NewValidator(cfg.Engine.MinCandleRange),
		histories:  history.NewManager(cfg.Engine.MaxHistoryBars),
		recognizer: strat.NewRecognizer(cfg.Pattern),
		detector:   detector,
		tracker:    harmonic.NewTracker(cfg.Harmonic.PatternTTL),
		scorer:     confluence.NewScorer(cfg.Confluence, detector),
		indicators: indicators,
		account:    account,
		calculator: risk.NewCalculator(cfg.Risk),
		throttle:   signalThrottle,
		limiter:    ratelimit.New(),
	}
}

// Ingest validates one raw candle and, when accepted, appends it to
// the symbol's history and feeds the indicator state. The returned
// rejection is nil on acceptance; ordering violations surface as
// rejections too, so a misbehaving feed never stops the loop.
func (p *Pipeline) Ingest(raw history.RawCandle) *history.Rejection {
	candle, rejection := p.validator.Validate(raw)
	if rejection != nil {
		return rejection
	}

	if err := p.histories.GetOrCreate(candle.Symbol).Append(candle); err != nil {
		reason := history.ReasonOutOfOrder
		if err == models.ErrDuplicateCandle {
			reason = history.ReasonDuplicate
		}
		return &history.Rejection{Reason: reason, Detail: err.Error()}
	}

	if err := p.indicators.Observe(candle); err != nil {
		logger.Warn("Indicator update failed",
			logger.String("symbol", candle.Symbol),
			logger.ErrorField(err),
		)
	}
	return nil
}

// HistoryLen returns the bar count held for symbol
func (p *Pipeline) HistoryLen(symbol string) int {
	h := p.histories.Get(symbol)
	if h == nil {
		return 0
	}
	return h.Len()
}

// ScanSymbol evaluates one symbol at now under the given session
// posture. It returns the emitted-able signal, or nil when the symbol
// produced nothing this cycle. Only infrastructure failures surface as
// errors; an absent or ineligible pattern is a nil, nil return.
func (p *Pipeline) ScanSymbol(ctx context.Context, symbol string, info session.Info, now time.Time) (*models.TradeSignal, error) {
	h := p.histories.Get(symbol)
	if h == nil || h.Len() < minPatternBars {
		return nil, nil
	}
	bars := h.Snapshot()

	// Refresh the harmonic state regardless of whether a trigger fires
	// this cycle; a confirmed ABCD stays active until it ages out.
	if detected := p.detector.Detect(symbol, bars, now); len(detected) > 0 {
		strongest := detected[0]
		for _, cand := range detected[1:] {
			if cand.Strength > strongest.Strength {
				strongest = cand
			}
		}
		if strongest.Strength >= p.detector.MinStrength() {
			p.tracker.Upsert(strongest)
		}
	}

	pattern := p.recognizer.Detect(bars)
	if pattern == nil {
		return nil, nil
	}
	if !info.Enables(pattern.Family) {
		return nil, nil
	}

	var active *models.ABCDPattern
	if info.Enables(models.FamilyHarmonic) {
		active = p.tracker.Get(symbol, now)
	}

	// The session API budget covers supplementary indicator fetches
	// only. An exhausted bucket or cold indicators degrade confluence;
	// neither aborts the scan.
	var snapshot *models.IndicatorSnapshot
	budget := float64(info.APIBudgetPerMinute)
	if budget <= 0 || p.limiter.Allow("indicators", budget, budget/60) {
		if snap, err := p.indicators.Snapshot(ctx, symbol); err == nil {
			snapshot = snap
		}
	}

	swings := harmonic.ExtractSwings(bars, p.cfg.Harmonic.SwingWindow, p.cfg.Harmonic.MinHistoryBars)
	entry := bars[len(bars)-1].Close

	result := p.scorer.Evaluate(confluence.Input{
		Direction: pattern.Direction,
		Price:     entry,
		Bars:      bars,
		Swings:    swings,
		Snapshot:  snapshot,
		Harmonic:  active,
	})
	if !p.scorer.Eligible(result) {
		logger.Debug("Confluence below floor",
			logger.String("symbol", symbol),
			logger.Int("satisfied", result.SatisfiedCount),
			logger.Float64("weighted_score", result.WeightedScore),
		)
		return nil, nil
	}

	if decision := p.throttle.Check(symbol, now); decision != throttle.Allowed {
		logger.Debug("Signal throttled",
			logger.String("symbol", symbol),
			logger.String("decision", string(decision)),
		)
		return nil, nil
	}

	equity, err := p.account.Equity(ctx)
	if err != nil {
		return nil, fmt.Errorf("account equity unavailable: %w", err)
	}

	harmonicAt := time.Time{}
	if active != nil && active.Direction == pattern.Direction {
		harmonicAt = active.DetectedAt
	}

	levels, err := p.calculator.Build(risk.Request{
		Symbol:                symbol,
		Direction:             pattern.Direction,
		Entry:                 entry,
		Anchor:                p.stopAnchor(pattern.Direction, bars),
		ATR:                   snapshotATR(snapshot),
		Equity:                equity,
		SessionRiskMultiplier: info.RiskMultiplier,
		Confidence:            (pattern.Strength + result.WeightedScore) / 200,
		StratAt:               pattern.Timestamp,
		HarmonicAt:            harmonicAt,
	})
	if err != nil {
		// Degenerate geometry suppresses the signal
		logger.Warn("Risk computation rejected signal",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
		return nil, nil
	}

	if p.throttle.Allow(symbol, now) != throttle.Allowed {
		return nil, nil
	}

	signal := &models.TradeSignal{
		ID:              uuid.New().String(),
		Symbol:          symbol,
		Direction:       pattern.Direction,
		Confidence:      levels.Confidence,
		EntryPrice:      entry,
		StopLoss:        levels.StopLoss,
		TakeProfit:      levels.TakeProfit,
		PositionSize:    levels.PositionSize,
		PatternLabel:    pattern.Sequence,
		Reasoning:       buildReasoning(pattern, result, active),
		RiskRewardRatio: levels.RiskReward,
		Timestamp:       now,
	}
	return signal, nil
}

// stopAnchor is the structural extreme of the 3-bar trigger window
func (p *Pipeline) stopAnchor(direction models.Direction, bars []models.Candle) float64 {
	window := bars[len(bars)-3:]

	if direction == models.Bullish {
		anchor := window[0].Low
		for _, b := range window[1:] {
			if b.Low < anchor {
				anchor = b.Low
			}
		}
		return anchor
	}

	anchor := window[0].High
	for _, b := range window[1:] {
		if b.High > anchor {
			anchor = b.High
		}
	}
	return anchor
}

func snapshotATR(s *models.IndicatorSnapshot) float64 {
	if s == nil {
		return 0
	}
	return s.ATR
}

// buildReasoning summarizes what fired, for the signal consumer
func buildReasoning(pattern *models.StratPattern, result models.ConfluenceResult, active *models.ABCDPattern) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s, strength %.0f)", pattern.Name, pattern.Sequence, pattern.Strength)

	var satisfied []string
	for _, f := range result.Breakdown {
		if f.Satisfied {
			satisfied = append(satisfied, f.Name)
		}
	}
	fmt.Fprintf(&sb, "; confluence %d/6 score %.0f [%s]",
		result.SatisfiedCount, result.WeightedScore, strings.Join(satisfied, ","))

	if active != nil {
		fmt.Fprintf(&sb, "; active ABCD %s strength %.0f", active.Direction, active.Strength)
	}
	return sb.String()
}

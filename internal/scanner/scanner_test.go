package scanner

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/data"
	"github.com/mohamedkhairy/pattern-scanner/internal/feed"
	"github.com/mohamedkhairy/pattern-scanner/internal/history"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
	"github.com/mohamedkhairy/pattern-scanner/internal/session"
	"github.com/mohamedkhairy/pattern-scanner/internal/throttle"
)

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			Watchlist:      []string{"TEST"},
			Interval:       "1m",
			MaxHistoryBars: 200,
			WorkerCount:    2,
			MinCandleRange: 0.01,
			Timezone:       "America/New_York",
		},
		Pattern: config.PatternConfig{
			MinStrength:          40,
			VolumeRatioThreshold: 1.2,
			RangeExpansionFactor: 1.1,
			EqualTieBreakInside:  true,
		},
		Harmonic: config.HarmonicConfig{
			SwingWindow:      5,
			MinHistoryBars:   50,
			MaxSwingGroups:   20,
			MinSwingFraction: 0.005,
			BCRetraceMin:     0.382,
			BCRetraceMax:     0.886,
			ABCDRatioMin:     0.618,
			ABCDRatioMax:     1.618,
			FibTolerance:     0.005,
			MinStrength:      70,
			PatternTTL:       24 * time.Hour,
		},
		Confluence: config.ConfluenceConfig{
			MinSatisfied:     4,
			MinWeightedScore: 50,
			VolumeMultiplier: 1.5,
			RSIBullishMin:    40,
			RSIBullishMax:    70,
			RSIBearishMin:    30,
			RSIBearishMax:    60,
			WeightFibonacci:  3,
			WeightTrend:      2,
			WeightVolume:     2,
			WeightTechnical:  2,
			WeightRSI:        1,
			WeightMACD:       1,
			EMAPeriods:       []int{20, 50, 100},
		},
		Risk: config.RiskConfig{
			MaxRiskPerTrade:    0.02,
			MaxPositionSize:    0.25,
			RiskRewardRatio:    2.0,
			StopPolicy:         "anchor",
			StopBufferFraction: 0.002,
			ATRMultiplier:      1.5,
			AgreementBonus:     0.05,
			AgreementWindow:    15 * time.Minute,
		},
		Throttle: config.ThrottleConfig{
			MaxSignalsPerDay: 3,
			Cooldown:         30 * time.Minute,
		},
	}
}

// bullishSnapshot satisfies trend, volume, rsi and macd for a long
func intradayInfo() session.Info {
	return session.Info{
		Session:        session.Intraday,
		RiskMultiplier: 1.0,
		EnabledFamilies: []models.PatternFamily{
			models.FamilyReversal, models.FamilyBreakout,
			models.FamilyContinuation, models.FamilyHarmonic,
		},
	}
}

func bullishSnapshot() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Symbol:    "TEST",
		EMA:       map[int]float64{20: 101, 50: 100, 100: 99},
		RSI:       55,
		MACD:      models.MACDValue{MACD: 0.4, Signal: 0.2, Histogram: 0.2},
		VolumeSMA: 1500,
		ATR:       1.0,
	}
}

func rawBar(minute int, open, high, low, closePrice, volume float64) history.RawCandle {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return history.RawCandle{
		Symbol:    "TEST",
		Interval:  "1m",
		Timestamp: time.Date(2024, 3, 5, 10, minute, 0, 0, time.UTC),
		Open:      f(open),
		High:      f(high),
		Low:       f(low),
		Close:     f(closePrice),
		Volume:    f(volume),
	}
}

// reversalBars ends in a 2D->2U transition: bar 4 takes out bar 3's
// high and low to the downside, bar 5 reclaims both.
func reversalBars() []history.RawCandle {
	return []history.RawCandle{
		rawBar(0, 100, 101, 99, 100.5, 1000),
		rawBar(1, 100.5, 101.2, 99.5, 100, 1000),
		rawBar(2, 100, 101, 99, 100, 1000),
		rawBar(3, 100, 100.5, 98, 98.5, 1000),
		rawBar(4, 98.5, 101.5, 98.2, 101.2, 3000),
	}
}

func newTestPipeline(cfg *config.Config) (*Pipeline, *data.MockIndicatorProvider) {
	indicators := data.NewMockIndicatorProvider()
	account := data.NewStaticAccount(100_000)
	th := throttle.New(cfg.Throttle, time.UTC)
	return NewPipeline(cfg, indicators, account, th), indicators
}

func TestIngestRejectsBadCandles(t *testing.T) {
	cfg := testConfig()
	p, _ := newTestPipeline(cfg)

	if rej := p.Ingest(rawBar(0, 100, 101, 99, 100.5, 1000)); rej != nil {
		t.Fatalf("valid candle rejected: %v", rej.Reason)
	}

	// Same timestamp again
	if rej := p.Ingest(rawBar(0, 100, 101, 99, 100.5, 1000)); rej == nil {
		t.Fatal("duplicate timestamp accepted")
	} else if rej.Reason != history.ReasonDuplicate {
		t.Fatalf("expected duplicate rejection, got %v", rej.Reason)
	}

	// Earlier timestamp
	earlier := rawBar(0, 100, 101, 99, 100.5, 1000)
	earlier.Timestamp = earlier.Timestamp.Add(-time.Minute)
	if rej := p.Ingest(earlier); rej == nil || rej.Reason != history.ReasonOutOfOrder {
		t.Fatalf("expected out-of-order rejection, got %v", rej)
	}

	// Non-numeric price
	bad := rawBar(1, 100, 101, 99, 100.5, 1000)
	bad.Close = "garbage"
	if rej := p.Ingest(bad); rej == nil || rej.Reason != history.ReasonNonNumeric {
		t.Fatalf("expected non-numeric rejection, got %v", rej)
	}

	if got := p.HistoryLen("TEST"); got != 1 {
		t.Fatalf("history length = %d, want 1", got)
	}
}

func TestScanSymbolEmitsLongSignal(t *testing.T) {
	cfg := testConfig()
	p, indicators := newTestPipeline(cfg)
	indicators.SetSnapshot("TEST", bullishSnapshot())

	for _, raw := range reversalBars() {
		if rej := p.Ingest(raw); rej != nil {
			t.Fatalf("candle rejected: %v %s", rej.Reason, rej.Detail)
		}
	}

	now := time.Date(2024, 3, 5, 10, 5, 0, 0, time.UTC)
	info := intradayInfo()

	signal, err := p.ScanSymbol(context.Background(), "TEST", info, now)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if signal == nil {
		t.Fatal("expected a signal, got none")
	}

	if signal.Direction != models.Bullish {
		t.Errorf("direction = %s, want bullish", signal.Direction)
	}
	if signal.PatternLabel != "2D->2U" {
		t.Errorf("pattern label = %q, want 2D->2U", signal.PatternLabel)
	}
	if signal.PositionSize <= 0 {
		t.Errorf("position size = %f, want > 0", signal.PositionSize)
	}
	if signal.StopLoss >= signal.EntryPrice {
		t.Errorf("stop %f not below entry %f", signal.StopLoss, signal.EntryPrice)
	}
	if signal.TakeProfit <= signal.EntryPrice {
		t.Errorf("target %f not above entry %f", signal.TakeProfit, signal.EntryPrice)
	}
	if signal.Confidence <= 0 || signal.Confidence > 1 {
		t.Errorf("confidence %f outside (0,1]", signal.Confidence)
	}
	if err := signal.Validate(); err != nil {
		t.Errorf("emitted signal fails validation: %v", err)
	}

	// Immediate rescan is inside the cooldown window
	again, err := p.ScanSymbol(context.Background(), "TEST", info, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if again != nil {
		t.Error("expected cooldown to suppress the second signal")
	}
}

func TestScanSymbolBudgetGatesIndicatorFetchOnly(t *testing.T) {
	cfg := testConfig()
	p, indicators := newTestPipeline(cfg)
	indicators.SetSnapshot("TEST", bullishSnapshot())

	for _, raw := range reversalBars() {
		if rej := p.Ingest(raw); rej != nil {
			t.Fatalf("candle rejected: %v %s", rej.Reason, rej.Detail)
		}
	}

	info := intradayInfo()
	info.APIBudgetPerMinute = 1
	now := time.Date(2024, 3, 5, 10, 5, 0, 0, time.UTC)

	signal, err := p.ScanSymbol(context.Background(), "TEST", info, now)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if signal == nil {
		t.Fatal("expected a signal on the first scan")
	}
	if got := indicators.SnapshotCount(); got != 1 {
		t.Fatalf("snapshot fetches = %d, want 1", got)
	}

	// The exhausted budget must skip only the indicator fetch; the
	// scan itself still runs and degrades to a snapshotless pass.
	again, err := p.ScanSymbol(context.Background(), "TEST", info, now.Add(time.Second))
	if err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if again != nil {
		t.Error("expected degraded confluence to suppress the second signal")
	}
	if got := indicators.SnapshotCount(); got != 1 {
		t.Errorf("snapshot fetches = %d, want still 1 after budget exhaustion", got)
	}
}

func TestScanSymbolDisabledFamilySuppressed(t *testing.T) {
	cfg := testConfig()
	p, indicators := newTestPipeline(cfg)
	indicators.SetSnapshot("TEST", bullishSnapshot())

	for _, raw := range reversalBars() {
		if rej := p.Ingest(raw); rej != nil {
			t.Fatalf("candle rejected: %v %s", rej.Reason, rej.Detail)
		}
	}

	// Same setup as the emitting case, but the session posture does
	// not enable reversals.
	info := session.Info{
		Session:         session.Premarket,
		RiskMultiplier:  1.0,
		EnabledFamilies: []models.PatternFamily{models.FamilyContinuation},
	}

	signal, err := p.ScanSymbol(context.Background(), "TEST", info, time.Now())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if signal != nil {
		t.Error("expected disabled family to suppress the signal")
	}
}

func TestScanSymbolNoPatternNoSignal(t *testing.T) {
	cfg := testConfig()
	p, indicators := newTestPipeline(cfg)
	indicators.SetSnapshot("TEST", bullishSnapshot())

	// Monotone drift, no qualifying transition at the tail
	for i := 0; i < 5; i++ {
		base := 100 + float64(i)*0.5
		raw := rawBar(i, base, base+1, base-1, base+0.4, 1000)
		if rej := p.Ingest(raw); rej != nil {
			t.Fatalf("candle rejected: %v", rej.Reason)
		}
	}

	info := intradayInfo()
	signal, err := p.ScanSymbol(context.Background(), "TEST", info, time.Now())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if signal != nil {
		t.Fatalf("unexpected signal: %+v", signal)
	}
}

func TestScanSymbolConfluenceFloor(t *testing.T) {
	cfg := testConfig()
	p, indicators := newTestPipeline(cfg)

	// Weak snapshot: everything indicator-backed fails
	indicators.SetSnapshot("TEST", &models.IndicatorSnapshot{
		Symbol:    "TEST",
		EMA:       map[int]float64{20: 99, 50: 100, 100: 101},
		RSI:       85,
		MACD:      models.MACDValue{MACD: -0.1, Signal: 0.1, Histogram: -0.2},
		VolumeSMA: 50_000,
	})

	for _, raw := range reversalBars() {
		if rej := p.Ingest(raw); rej != nil {
			t.Fatalf("candle rejected: %v", rej.Reason)
		}
	}

	info := intradayInfo()
	signal, err := p.ScanSymbol(context.Background(), "TEST", info, time.Now())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if signal != nil {
		t.Fatal("expected the confluence floor to suppress the signal")
	}
}

type captureEmitter struct {
	mu      sync.Mutex
	signals []*models.TradeSignal
}

func (c *captureEmitter) Publish(_ context.Context, s *models.TradeSignal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = append(c.signals, s)
	return nil
}

func (c *captureEmitter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.signals)
}

func TestEngineEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.Session = config.SessionConfig{
		Boundaries: config.SessionBoundary{
			PremarketOpen: 4 * 60,
			MarketOpen:    9*60 + 30,
			MarketClose:   16 * 60,
			AfterhoursEnd: 20 * 60,
		},
		PremarketInterval:   10 * time.Millisecond,
		IntradayInterval:    10 * time.Millisecond,
		AfterhoursInterval:  10 * time.Millisecond,
		ClosedInterval:      10 * time.Millisecond,
		PremarketRisk:       1.0,
		IntradayRisk:        1.0,
		AfterhoursRisk:      1.0,
		ClosedRisk:          1.0,
		PremarketAPIBudget:  10_000,
		IntradayAPIBudget:   10_000,
		AfterhoursAPIBudget: 10_000,
		ClosedAPIBudget:     10_000,
	}

	indicators := data.NewMockIndicatorProvider()
	indicators.SetSnapshot("TEST", bullishSnapshot())
	account := data.NewStaticAccount(100_000)
	th := throttle.New(cfg.Throttle, time.UTC)
	pipeline := NewPipeline(cfg, indicators, account, th)

	classifier := session.NewClassifier(cfg.Session, cfg.Engine.Timezone)
	replay := feed.NewReplayFeed(reversalBars(), 0)
	emitter := &captureEmitter{}

	engine := NewEngine(cfg, pipeline, classifier, replay, emitter)
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("engine start failed: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for emitter.count() == 0 {
		select {
		case <-deadline:
			engine.Stop()
			t.Fatalf("no signal emitted; stats: %+v", engine.Stats())
		case <-time.After(20 * time.Millisecond):
		}
	}
	engine.Stop()

	stats := engine.Stats()
	if stats.CandlesIngested != 5 {
		t.Errorf("candles ingested = %d, want 5", stats.CandlesIngested)
	}
	if stats.ScanCycles == 0 {
		t.Error("no scan cycles recorded")
	}
	if stats.SignalsEmitted == 0 {
		t.Error("no signals recorded")
	}
	if emitter.count() == 0 {
		t.Error("emitter received no signals")
	}

	sig := emitter.signals[0]
	if sig.Symbol != "TEST" || sig.Direction != models.Bullish {
		t.Errorf("unexpected signal %+v", sig)
	}
}

package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/feed"
	"github.com/mohamedkhairy/pattern-scanner/internal/history"
	"github.com/mohamedkhairy/pattern-scanner/internal/models"
	"github.com/mohamedkhairy/pattern-scanner/internal/session"
	"github.com/mohamedkhairy/pattern-scanner/pkg/logger"
)

var (
	scanCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_cycles_total",
			Help: "Total number of scan cycles executed",
		},
	)

	symbolsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "symbols_scanned_total",
			Help: "Total number of per-symbol scans",
		},
	)

	signalsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signals_emitted_total",
			Help: "Total number of trade signals emitted",
		},
	)

	candlesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candles_rejected_total",
			Help: "Total number of rejected raw candles",
		},
		[]string{"reason"},
	)

	scanCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scan_cycle_duration_seconds",
			Help:    "Scan cycle duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)
)

// SignalEmitter receives qualified trade signals
type SignalEmitter interface {
	Publish(ctx context.Context, signal *models.TradeSignal) error
}

// EngineStats is a snapshot of engine counters
type EngineStats struct {
	ScanCycles      int64         `json:"scan_cycles"`
	SymbolsScanned  int64         `json:"symbols_scanned"`
	SignalsEmitted  int64         `json:"signals_emitted"`
	CandlesIngested int64         `json:"candles_ingested"`
	CandlesRejected int64         `json:"candles_rejected"`
	ScanErrors      int64         `json:"scan_errors"`
	CurrentSession  string        `json:"current_session"`
	CurrentInterval time.Duration `json:"current_interval"`
	TrackedSymbols  int           `json:"tracked_symbols"`
}

// Engine drives the scan cadence: it consumes the candle feed,
// re-reads the session posture every cycle and fans the watchlist out
// to a bounded worker pool. Signal emission is fire-and-forget; a slow
// or failing emitter never stalls scanning.
type Engine struct {
	cfg        *config.Config
	pipeline   *Pipeline
	classifier *session.Classifier
	candleFeed feed.CandleFeed
	emitter    SignalEmitter

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	scanCycleCount  atomic.Int64
	symbolScanCount atomic.Int64
	signalCount     atomic.Int64
	ingestedCount   atomic.Int64
	rejectedCount   atomic.Int64
	errorCount      atomic.Int64
}

// NewEngine assembles the scan engine
func NewEngine(
	cfg *config.Config,
	pipeline *Pipeline,
	classifier *session.Classifier,
	candleFeed feed.CandleFeed,
	emitter SignalEmitter,
) *Engine {
	return &Engine{
		cfg:        cfg,
		pipeline:   pipeline,
		classifier: classifier,
		candleFeed: candleFeed,
		emitter:    emitter,
	}
}

// Start launches the feed consumer and the scan loop. It returns once
// both are running; Stop shuts them down.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	candles, err := e.candleFeed.Start(ctx)
	if err != nil {
		cancel()
		return err
	}

	e.running = true

	e.wg.Add(2)
	go e.consumeFeed(ctx, candles)
	go e.scanLoop(ctx)

	logger.Info("Scan engine started",
		logger.Int("watchlist_size", len(e.cfg.Engine.Watchlist)),
		logger.Int("workers", e.cfg.Engine.WorkerCount),
	)
	return nil
}

// Stop shuts the engine down and waits for in-flight work
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	running := e.running
	e.running = false
	e.mu.Unlock()

	if !running {
		return
	}
	cancel()
	e.candleFeed.Close()
	e.wg.Wait()
	logger.Info("Scan engine stopped")
}

// consumeFeed ingests raw candles until the channel closes
func (e *Engine) consumeFeed(ctx context.Context, candles <-chan history.RawCandle) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-candles:
			if !ok {
				return
			}
			if rejection := e.pipeline.Ingest(raw); rejection != nil {
				e.rejectedCount.Add(1)
				candlesRejected.WithLabelValues(string(rejection.Reason)).Inc()
				logger.Debug("Candle rejected",
					logger.String("symbol", raw.Symbol),
					logger.String("reason", string(rejection.Reason)),
					logger.String("detail", rejection.Detail),
				)
				continue
			}
			e.ingestedCount.Add(1)
		}
	}
}

// scanLoop runs one cycle per session interval. The timer is re-armed
// from the session posture after every cycle, so cadence follows the
// clock through session transitions.
func (e *Engine) scanLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		info := e.classifier.InfoAt(time.Now())

		timer := time.NewTimer(info.ScanInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		e.runCycle(ctx)
	}
}

// runCycle scans the whole watchlist once through the worker pool
func (e *Engine) runCycle(ctx context.Context) {
	now := time.Now()
	info := e.classifier.InfoAt(now)
	start := time.Now()

	workers := e.cfg.Engine.WorkerCount
	if workers < 1 {
		workers = 1
	}

	symbols := make(chan string, len(e.cfg.Engine.Watchlist))
	for _, s := range e.cfg.Engine.Watchlist {
		symbols <- s
	}
	close(symbols)

	var cycleWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		cycleWG.Add(1)
		go func() {
			defer cycleWG.Done()
			for symbol := range symbols {
				if ctx.Err() != nil {
					return
				}
				e.scanOne(ctx, symbol, info, now)
			}
		}()
	}
	cycleWG.Wait()

	e.scanCycleCount.Add(1)
	scanCycles.Inc()
	scanCycleDuration.Observe(time.Since(start).Seconds())
}

// scanOne evaluates a single symbol
func (e *Engine) scanOne(ctx context.Context, symbol string, info session.Info, now time.Time) {
	e.symbolScanCount.Add(1)
	symbolsScanned.Inc()

	signal, err := e.pipeline.ScanSymbol(ctx, symbol, info, now)
	if err != nil {
		e.errorCount.Add(1)
		logger.Error("Symbol scan failed",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
		return
	}
	if signal == nil {
		return
	}

	e.signalCount.Add(1)
	signalsEmitted.Inc()
	logger.Info("Trade signal emitted",
		logger.String("symbol", signal.Symbol),
		logger.String("direction", string(signal.Direction)),
		logger.String("pattern", signal.PatternLabel),
		logger.Float64("confidence", signal.Confidence),
		logger.Float64("entry", signal.EntryPrice),
		logger.Float64("stop", signal.StopLoss),
		logger.Float64("target", signal.TakeProfit),
	)

	// Fire and forget: emission runs detached from the scan cycle
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.emitter.Publish(context.Background(), signal); err != nil {
			logger.Error("Signal emission failed",
				logger.String("symbol", signal.Symbol),
				logger.String("signal_id", signal.ID),
				logger.ErrorField(err),
			)
		}
	}()
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() EngineStats {
	now := time.Now()
	info := e.classifier.InfoAt(now)

	return EngineStats{
		ScanCycles:      e.scanCycleCount.Load(),
		SymbolsScanned:  e.symbolScanCount.Load(),
		SignalsEmitted:  e.signalCount.Load(),
		CandlesIngested: e.ingestedCount.Load(),
		CandlesRejected: e.rejectedCount.Load(),
		ScanErrors:      e.errorCount.Load(),
		CurrentSession:  string(info.Session),
		CurrentInterval: info.ScanInterval,
		TrackedSymbols:  e.pipeline.histories.SymbolCount(),
	}
}

package data

import (
	"context"
	"errors"
	"sync"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
	"github.com/mohamedkhairy/pattern-scanner/pkg/indicator"
)

// LocalIndicatorProvider computes indicators in-process from the
// candles it observes, one snapshot builder per symbol.
type LocalIndicatorProvider struct {
	mu         sync.RWMutex
	emaPeriods []int
	builders   map[string]*indicator.SnapshotBuilder
}

// NewLocalIndicatorProvider creates a provider computing the given EMA
// ladder alongside the fixed RSI/MACD/volume/ATR/Bollinger set.
func NewLocalIndicatorProvider(emaPeriods []int) *LocalIndicatorProvider {
	return &LocalIndicatorProvider{
		emaPeriods: emaPeriods,
		builders:   make(map[string]*indicator.SnapshotBuilder),
	}
}

// Observe feeds one candle into the symbol's builder, creating it on
// first sight.
func (p *LocalIndicatorProvider) Observe(candle *models.Candle) error {
	if candle == nil {
		return errors.New("nil candle")
	}

	builder, err := p.builderFor(candle.Symbol)
	if err != nil {
		return err
	}
	return builder.Update(candle)
}

// Snapshot returns the symbol's indicator view as of the last observed
// bar.
func (p *LocalIndicatorProvider) Snapshot(_ context.Context, symbol string) (*models.IndicatorSnapshot, error) {
	p.mu.RLock()
	builder, ok := p.builders[symbol]
	p.mu.RUnlock()

	if !ok {
		return nil, ErrSymbolUnknown
	}
	if !builder.Ready() {
		return nil, ErrSnapshotUnavailable
	}
	return builder.Snapshot()
}

func (p *LocalIndicatorProvider) builderFor(symbol string) (*indicator.SnapshotBuilder, error) {
	p.mu.RLock()
	builder, ok := p.builders[symbol]
	p.mu.RUnlock()
	if ok {
		return builder, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if builder, ok = p.builders[symbol]; ok {
		return builder, nil
	}

	builder, err := indicator.NewSnapshotBuilder(symbol, p.emaPeriods)
	if err != nil {
		return nil, err
	}
	p.builders[symbol] = builder
	return builder, nil
}

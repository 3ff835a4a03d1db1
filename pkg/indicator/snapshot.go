package indicator

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// SnapshotBuilder maintains the full indicator set for one symbol and
// produces an IndicatorSnapshot for the most recent bar: EMA ladder,
// RSI, MACD triple, volume SMA, ATR and Bollinger Bands.
type SnapshotBuilder struct {
	symbol    string
	emas      map[int]*EMA
	emaOrder  []int
	rsi       *RSI
	macd      *TechanMACD
	volSMA    *SMA
	atr       *TechanCalculator
	bollinger *TechanBollinger
}

// NewSnapshotBuilder creates a builder with the given EMA ladder and
// conventional periods for the remaining indicators (RSI 14,
// MACD 12/26/9, volume SMA 20, ATR 14, Bollinger 20/2).
func NewSnapshotBuilder(symbol string, emaPeriods []int) (*SnapshotBuilder, error) {
	if len(emaPeriods) == 0 {
		return nil, fmt.Errorf("at least one EMA period is required")
	}

	emas := make(map[int]*EMA, len(emaPeriods))
	order := make([]int, 0, len(emaPeriods))
	for _, p := range emaPeriods {
		ema, err := NewEMA(p)
		if err != nil {
			return nil, err
		}
		emas[p] = ema
		order = append(order, p)
	}

	rsi, err := NewRSI(14)
	if err != nil {
		return nil, err
	}
	macd, err := NewTechanMACD(12, 26, 9, time.Minute)
	if err != nil {
		return nil, err
	}
	volSMA, err := NewVolumeSMA(20)
	if err != nil {
		return nil, err
	}
	atr, err := NewTechanATR(14, time.Minute)
	if err != nil {
		return nil, err
	}
	bollinger, err := NewTechanBollinger(20, 2.0, time.Minute)
	if err != nil {
		return nil, err
	}

	return &SnapshotBuilder{
		symbol:    symbol,
		emas:      emas,
		emaOrder:  order,
		rsi:       rsi,
		macd:      macd,
		volSMA:    volSMA,
		atr:       atr,
		bollinger: bollinger,
	}, nil
}

// Update feeds one finalized candle to every calculator
func (b *SnapshotBuilder) Update(c *models.Candle) error {
	if c == nil {
		return errNilCandle()
	}

	for _, p := range b.emaOrder {
		if _, err := b.emas[p].Update(c); err != nil {
			return err
		}
	}
	if _, err := b.rsi.Update(c); err != nil {
		return err
	}
	if _, err := b.macd.Update(c); err != nil {
		return err
	}
	if _, err := b.volSMA.Update(c); err != nil {
		return err
	}
	if _, err := b.atr.Update(c); err != nil {
		return err
	}
	if _, err := b.bollinger.Update(c); err != nil {
		return err
	}
	return nil
}

// Ready reports whether every calculator has settled
func (b *SnapshotBuilder) Ready() bool {
	for _, p := range b.emaOrder {
		if !b.emas[p].Warm() {
			return false
		}
	}
	return b.rsi.IsReady() && b.macd.IsReady() && b.volSMA.IsReady() &&
		b.atr.IsReady() && b.bollinger.IsReady()
}

// Snapshot returns the indicator snapshot for the most recent bar.
// Returns models.ErrInsufficientBars until every calculator is ready.
func (b *SnapshotBuilder) Snapshot() (*models.IndicatorSnapshot, error) {
	if !b.Ready() {
		return nil, models.ErrInsufficientBars
	}

	emaValues := make(map[int]float64, len(b.emaOrder))
	for _, p := range b.emaOrder {
		v, err := b.emas[p].Value()
		if err != nil {
			return nil, err
		}
		emaValues[p] = v
	}

	rsi, err := b.rsi.Value()
	if err != nil {
		return nil, err
	}
	macd, err := b.macd.Triple()
	if err != nil {
		return nil, err
	}
	volSMA, err := b.volSMA.Value()
	if err != nil {
		return nil, err
	}
	atr, err := b.atr.Value()
	if err != nil {
		return nil, err
	}
	bands, err := b.bollinger.Bands()
	if err != nil {
		return nil, err
	}

	return &models.IndicatorSnapshot{
		Symbol:    b.symbol,
		EMA:       emaValues,
		RSI:       rsi,
		MACD:      macd,
		VolumeSMA: volSMA,
		ATR:       atr,
		Bollinger: bands,
	}, nil
}

// Reset clears every calculator
func (b *SnapshotBuilder) Reset() {
	for _, p := range b.emaOrder {
		b.emas[p].Reset()
	}
	b.rsi.Reset()
	b.macd.Reset()
	b.volSMA.Reset()
	b.atr.Reset()
	b.bollinger.Reset()
}

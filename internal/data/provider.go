package data

import (
	"context"
	"errors"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

var (
	// ErrSymbolUnknown is returned when no state exists for a symbol
	ErrSymbolUnknown = errors.New("symbol unknown to provider")
	// ErrSnapshotUnavailable is returned before enough bars have accumulated
	ErrSnapshotUnavailable = errors.New("indicator snapshot unavailable")
)

// IndicatorProvider supplies the technical-indicator view of a symbol
// used by the confluence scorer.
type IndicatorProvider interface {
	// Observe feeds one validated candle into the symbol's indicator state
	Observe(candle *models.Candle) error

	// Snapshot returns the indicator view as of the last observed bar.
	// Returns ErrSnapshotUnavailable until the slowest indicator warms up.
	Snapshot(ctx context.Context, symbol string) (*models.IndicatorSnapshot, error)
}

// AccountProvider supplies the equity figure position sizing works from
type AccountProvider interface {
	Equity(ctx context.Context) (float64, error)
}

// StaticAccount is an AccountProvider with a fixed equity, used when
// no brokerage account is wired in.
type StaticAccount struct {
	equity float64
}

// NewStaticAccount creates an account provider that always reports equity
func NewStaticAccount(equity float64) *StaticAccount {
	return &StaticAccount{equity: equity}
}

// Equity returns the configured equity
func (a *StaticAccount) Equity(_ context.Context) (float64, error) {
	return a.equity, nil
}

package feed

import (
	"context"

	"github.com/mohamedkhairy/pattern-scanner/internal/history"
)

// CandleFeed delivers raw candles from an upstream source. Start may
// be called once; the returned channel closes when the feed stops,
// either from Close or from the context ending.
type CandleFeed interface {
	Start(ctx context.Context) (<-chan history.RawCandle, error)
	Close() error
}

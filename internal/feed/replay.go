package feed

import (
	"context"
	"sync"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/history"
)

// ReplayFeed delivers a fixed candle sequence, optionally paced by a
// per-candle delay. Used in tests and offline replays.
type ReplayFeed struct {
	candles []history.RawCandle
	pace    time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReplayFeed creates a feed that replays candles in order
func NewReplayFeed(candles []history.RawCandle, pace time.Duration) *ReplayFeed {
	return &ReplayFeed{candles: candles, pace: pace}
}

// Start begins the replay. The channel closes after the last candle.
func (f *ReplayFeed) Start(ctx context.Context) (<-chan history.RawCandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		return nil, ErrFeedAlreadyStarted
	}
	f.started = true

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	out := make(chan history.RawCandle, len(f.candles))

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer close(out)

		for _, c := range f.candles {
			if f.pace > 0 && !sleepCtx(ctx, f.pace) {
				return
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close stops the replay
func (f *ReplayFeed) Close() error {
	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	f.wg.Wait()
	return nil
}

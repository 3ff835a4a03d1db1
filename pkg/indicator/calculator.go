package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

// Calculator is an incremental indicator fed one finalized candle at a
// time. Implementations keep their own rolling state and report not
// ready until they have seen enough bars.
type Calculator interface {
	// Name returns the metric name, e.g. "rsi_14"
	Name() string
	// Update processes a new candle and returns the current value.
	// The value is meaningless until IsReady reports true.
	Update(c *models.Candle) (float64, error)
	// Value returns the current value, or an error if not ready
	Value() (float64, error)
	// Reset clears all rolling state
	Reset()
	// IsReady reports whether enough bars have been processed
	IsReady() bool
}

func errNotReady(name string, need int) error {
	return fmt.Errorf("%s not ready: need at least %d bars", name, need)
}

func errNilCandle() error {
	return fmt.Errorf("candle cannot be nil")
}

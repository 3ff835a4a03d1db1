package strat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

func bar(high, low float64) *models.Candle {
	mid := (high + low) / 2
	return &models.Candle{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
		Open:      mid,
		High:      high,
		Low:       low,
		Close:     mid,
		Volume:    1000,
	}
}

func TestClassifyUndefinedPrev(t *testing.T) {
	c := NewClassifier(true)
	assert.Equal(t, BarNone, c.Classify(nil, bar(105, 99)))
}

func TestClassifyTotality(t *testing.T) {
	c := NewClassifier(true)
	prev := bar(105, 99)

	tests := []struct {
		name string
		curr *models.Candle
		want BarType
	}{
		{"inside", bar(104, 100), BarInside},
		{"up", bar(106, 100), BarUp},
		{"up equal low", bar(106, 99), BarUp},
		{"up equal high", bar(105, 100), BarUp},
		{"down", bar(104, 98), BarDown},
		{"down equal high", bar(105, 98), BarDown},
		{"down equal low", bar(104, 99), BarDown},
		{"outside", bar(106, 98), BarOutside},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(prev, tt.curr)
			assert.Equal(t, tt.want, got)
			// Deterministic: same inputs, same answer
			assert.Equal(t, got, c.Classify(prev, tt.curr))
		})
	}
}

func TestClassifyEqualityTieBreak(t *testing.T) {
	prev := bar(105, 99)
	curr := bar(105, 99)

	assert.Equal(t, BarInside, NewClassifier(true).Classify(prev, curr))
	assert.Equal(t, BarUp, NewClassifier(false).Classify(prev, curr))
}

func TestBarTypeString(t *testing.T) {
	assert.Equal(t, "1", BarInside.String())
	assert.Equal(t, "2U", BarUp.String())
	assert.Equal(t, "2D", BarDown.String())
	assert.Equal(t, "3", BarOutside.String())
	assert.Equal(t, "none", BarNone.String())
}

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/pattern-scanner/internal/models"
)

func candle(ts time.Time, close float64) *models.Candle {
	return &models.Candle{
		Symbol:    "AAPL",
		Interval:  "1m",
		Timestamp: ts,
		Open:      close - 0.2,
		High:      close + 0.5,
		Low:       close - 0.5,
		Close:     close,
		Volume:    1000,
	}
}

func TestValidatorAccepts(t *testing.T) {
	v := NewValidator(0.01)

	c, rej := v.Validate(RawCandle{
		Symbol:    "AAPL",
		Interval:  "1m",
		Timestamp: time.Now(),
		Open:      "100.0",
		High:      "101.5",
		Low:       "99.5",
		Close:     "101.0",
		Volume:    "25000",
	})
	require.Nil(t, rej)
	require.NotNil(t, c)
	assert.Equal(t, 101.0, c.Close)
	assert.Equal(t, 25000.0, c.Volume)
}

func TestValidatorRejectReasons(t *testing.T) {
	v := NewValidator(0.5)
	now := time.Now()

	tests := []struct {
		name   string
		raw    RawCandle
		reason RejectReason
	}{
		{
			"non-numeric open",
			RawCandle{Symbol: "AAPL", Timestamp: now, Open: "abc", High: "101", Low: "99", Close: "100"},
			ReasonNonNumeric,
		},
		{
			"non-numeric volume",
			RawCandle{Symbol: "AAPL", Timestamp: now, Open: "100", High: "101", Low: "99", Close: "100", Volume: "n/a"},
			ReasonNonNumeric,
		},
		{
			"high below close",
			RawCandle{Symbol: "AAPL", Timestamp: now, Open: "100", High: "100.5", Low: "99", Close: "101"},
			ReasonInvalidOHLC,
		},
		{
			"sub-minimum range",
			RawCandle{Symbol: "AAPL", Timestamp: now, Open: "100", High: "100.1", Low: "99.9", Close: "100"},
			ReasonSubMinimumRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rej := v.Validate(tt.raw)
			assert.Nil(t, c)
			require.NotNil(t, rej)
			assert.Equal(t, tt.reason, rej.Reason)
		})
	}
}

func TestValidatorMissingVolumeIsOptional(t *testing.T) {
	v := NewValidator(0.01)

	c, rej := v.Validate(RawCandle{
		Symbol: "AAPL", Timestamp: time.Now(),
		Open: "100", High: "101", Low: "99", Close: "100.5",
	})
	require.Nil(t, rej)
	assert.Equal(t, 0.0, c.Volume)
}

func TestHistoryOrderingGuarantee(t *testing.T) {
	h := NewHistory("AAPL", 100)
	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	require.NoError(t, h.Append(candle(base, 100)))
	require.NoError(t, h.Append(candle(base.Add(time.Minute), 101)))

	assert.ErrorIs(t, h.Append(candle(base.Add(time.Minute), 102)), models.ErrDuplicateCandle)
	assert.ErrorIs(t, h.Append(candle(base, 103)), models.ErrOutOfOrderCandle)
	assert.Equal(t, 2, h.Len(), "rejected candles must not enter the window")
}

func TestHistorySlidingWindow(t *testing.T) {
	h := NewHistory("AAPL", 3)
	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Append(candle(base.Add(time.Duration(i)*time.Minute), 100+float64(i))))
	}

	assert.Equal(t, 3, h.Len())
	snap := h.Snapshot()
	assert.Equal(t, 102.0, snap[0].Close, "oldest two candles should be evicted")
	assert.Equal(t, 104.0, snap[2].Close)
}

func TestHistoryLastCopies(t *testing.T) {
	h := NewHistory("AAPL", 10)
	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, h.Append(candle(base.Add(time.Duration(i)*time.Minute), 100+float64(i))))
	}

	last := h.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, 103.0, last[1].Close)

	last[1].Close = 0
	assert.Equal(t, 103.0, h.Snapshot()[3].Close, "mutating the copy must not touch the window")

	assert.Len(t, h.Last(100), 4)
	assert.Nil(t, h.Last(0))
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager(50)

	assert.Nil(t, m.Get("AAPL"))
	h1 := m.GetOrCreate("AAPL")
	h2 := m.GetOrCreate("AAPL")
	assert.Same(t, h1, h2)
	assert.Equal(t, 1, m.SymbolCount())

	m.Remove("AAPL")
	assert.Equal(t, 0, m.SymbolCount())
}

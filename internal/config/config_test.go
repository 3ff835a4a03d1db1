package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENGINE_WATCHLIST", "AAPL,MSFT, TSLA")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, cfg.Engine.Watchlist)
	assert.Equal(t, 200, cfg.Engine.MaxHistoryBars)
	assert.Equal(t, 4, cfg.Confluence.MinSatisfied)
	assert.Equal(t, []int{20, 50, 100}, cfg.Confluence.EMAPeriods)
	assert.Equal(t, 0.02, cfg.Risk.MaxRiskPerTrade)
	assert.Equal(t, 2*time.Minute, cfg.Session.PremarketInterval)
	assert.Equal(t, 1*time.Minute, cfg.Session.IntradayInterval)
	assert.Equal(t, 24*time.Hour, cfg.Harmonic.PatternTTL)
	assert.Equal(t, "anchor", cfg.Risk.StopPolicy)
	assert.True(t, cfg.Pattern.EqualTieBreakInside)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENGINE_WATCHLIST", "SPY")
	t.Setenv("CONFLUENCE_MIN_SATISFIED", "5")
	t.Setenv("THROTTLE_COOLDOWN", "10m")
	t.Setenv("RISK_STOP_POLICY", "atr")
	t.Setenv("HARMONIC_FIB_TOLERANCE", "0.01")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Confluence.MinSatisfied)
	assert.Equal(t, 10*time.Minute, cfg.Throttle.Cooldown)
	assert.Equal(t, "atr", cfg.Risk.StopPolicy)
	assert.Equal(t, 0.01, cfg.Harmonic.FibTolerance)
}

func TestValidateFailFast(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"empty watchlist", map[string]string{}},
		{"confluence minimum above factor count", map[string]string{
			"ENGINE_WATCHLIST":         "AAPL",
			"CONFLUENCE_MIN_SATISFIED": "7",
		}},
		{"inverted retrace bounds", map[string]string{
			"ENGINE_WATCHLIST":        "AAPL",
			"HARMONIC_BC_RETRACE_MIN": "0.9",
			"HARMONIC_BC_RETRACE_MAX": "0.4",
		}},
		{"inverted session boundaries", map[string]string{
			"ENGINE_WATCHLIST":          "AAPL",
			"SESSION_MARKET_OPEN_MIN":   "960",
			"SESSION_MARKET_CLOSE_MIN":  "570",
		}},
		{"risk fraction above one", map[string]string{
			"ENGINE_WATCHLIST":   "AAPL",
			"RISK_MAX_PER_TRADE": "1.5",
		}},
		{"unknown stop policy", map[string]string{
			"ENGINE_WATCHLIST": "AAPL",
			"RISK_STOP_POLICY": "trailing",
		}},
		{"zero daily signal cap", map[string]string{
			"ENGINE_WATCHLIST":             "AAPL",
			"THROTTLE_MAX_SIGNALS_PER_DAY": "0",
		}},
		{"non-increasing ema ladder", map[string]string{
			"ENGINE_WATCHLIST":       "AAPL",
			"CONFLUENCE_EMA_PERIODS": "50,20,100",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	Engine     EngineConfig
	Pattern    PatternConfig
	Harmonic   HarmonicConfig
	Confluence ConfluenceConfig
	Session    SessionConfig
	Risk       RiskConfig
	Throttle   ThrottleConfig

	Feed     FeedConfig
	Redis    RedisConfig
	Database DatabaseConfig
	API      APIConfig
}

// EngineConfig holds scan engine configuration
type EngineConfig struct {
	Watchlist      []string
	Interval       string // candle interval, e.g. "1m"
	MaxHistoryBars int    // sliding window per symbol
	WorkerCount    int    // parallel symbol scans per tick
	MinCandleRange float64
	Timezone       string // throttle day boundary / session zone
}

// PatternConfig holds Strat pattern recognizer thresholds
type PatternConfig struct {
	MinStrength          float64 // patterns below this are discarded
	VolumeRatioThreshold float64 // bar3:bar2 volume ratio for the bonus
	RangeExpansionFactor float64 // bar3 range vs bar2 range for the bonus
	EqualTieBreakInside  bool    // equal high+low classifies as Inside
}

// HarmonicConfig holds swing/ABCD detector thresholds
type HarmonicConfig struct {
	SwingWindow      int     // bars each side for extremum confirmation
	MinHistoryBars   int     // swings require at least this many bars
	MaxSwingGroups   int     // lookback over recent ABCD candidates
	MinSwingFraction float64 // min leg size as fraction of price
	BCRetraceMin     float64
	BCRetraceMax     float64
	ABCDRatioMin     float64
	ABCDRatioMax     float64
	FibTolerance     float64 // fraction of price
	MinStrength      float64
	PatternTTL       time.Duration // active pattern retention
}

// ConfluenceConfig holds scorer weights and minimums
type ConfluenceConfig struct {
	MinSatisfied     int     // minimum satisfied factor count
	MinWeightedScore float64 // weighted score floor
	VolumeMultiplier float64 // volume vs volume-SMA
	RSIBullishMin    float64
	RSIBullishMax    float64
	RSIBearishMin    float64
	RSIBearishMax    float64
	WeightFibonacci  float64
	WeightTrend      float64
	WeightVolume     float64
	WeightTechnical  float64
	WeightRSI        float64
	WeightMACD       float64
	EMAPeriods       []int // ladder, ordered fast to slow
}

// SessionBoundary is minutes since midnight Eastern
type SessionBoundary struct {
	PremarketOpen  int
	MarketOpen     int
	MarketClose    int
	AfterhoursEnd  int
}

// SessionConfig holds per-session cadence and risk posture
type SessionConfig struct {
	Boundaries          SessionBoundary
	PremarketInterval   time.Duration
	IntradayInterval    time.Duration
	AfterhoursInterval  time.Duration
	ClosedInterval      time.Duration
	PremarketRisk       float64
	IntradayRisk        float64
	AfterhoursRisk      float64
	ClosedRisk          float64
	PremarketAPIBudget  int
	IntradayAPIBudget   int
	AfterhoursAPIBudget int
	ClosedAPIBudget     int
}

// RiskConfig holds position sizing and trade level parameters
type RiskConfig struct {
	AccountEquity      float64 // sizing base when no account provider is wired
	MaxRiskPerTrade    float64 // fraction of equity risked per trade
	MaxPositionSize    float64 // max notional as fraction of equity
	RiskRewardRatio    float64
	StopPolicy         string  // "anchor" or "atr"
	StopBufferFraction float64 // anchor policy buffer
	ATRMultiplier      float64 // atr policy offset
	AgreementBonus     float64 // confidence bonus on independent agreement
	AgreementWindow    time.Duration
}

// ThrottleConfig holds per-symbol signal limiting parameters
type ThrottleConfig struct {
	MaxSignalsPerDay int
	Cooldown         time.Duration
}

// FeedConfig holds candle feed configuration
type FeedConfig struct {
	WebSocketURL      string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	BufferSize        int
}

// RedisConfig holds Redis configuration for signal publishing
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	SignalStream string
}

// DatabaseConfig holds the signal store database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// APIConfig holds the operational HTTP endpoint configuration
type APIConfig struct {
	Port int
}

// Load loads configuration from environment variables.
// It automatically loads .env file if it exists in the current directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Engine: EngineConfig{
			Watchlist:      getEnvAsStringSlice("ENGINE_WATCHLIST", []string{}),
			Interval:       getEnv("ENGINE_INTERVAL", "1m"),
			MaxHistoryBars: getEnvAsInt("ENGINE_MAX_HISTORY_BARS", 200),
			WorkerCount:    getEnvAsInt("ENGINE_WORKER_COUNT", 4),
			MinCandleRange: getEnvAsFloat("ENGINE_MIN_CANDLE_RANGE", 0.01),
			Timezone:       getEnv("ENGINE_TIMEZONE", "America/New_York"),
		},
		Pattern: PatternConfig{
			MinStrength:          getEnvAsFloat("PATTERN_MIN_STRENGTH", 40),
			VolumeRatioThreshold: getEnvAsFloat("PATTERN_VOLUME_RATIO", 1.2),
			RangeExpansionFactor: getEnvAsFloat("PATTERN_RANGE_EXPANSION", 1.1),
			EqualTieBreakInside:  getEnvAsBool("PATTERN_EQUAL_TIE_BREAK_INSIDE", true),
		},
		Harmonic: HarmonicConfig{
			SwingWindow:      getEnvAsInt("HARMONIC_SWING_WINDOW", 5),
			MinHistoryBars:   getEnvAsInt("HARMONIC_MIN_HISTORY_BARS", 50),
			MaxSwingGroups:   getEnvAsInt("HARMONIC_MAX_SWING_GROUPS", 20),
			MinSwingFraction: getEnvAsFloat("HARMONIC_MIN_SWING_FRACTION", 0.005),
			BCRetraceMin:     getEnvAsFloat("HARMONIC_BC_RETRACE_MIN", 0.382),
			BCRetraceMax:     getEnvAsFloat("HARMONIC_BC_RETRACE_MAX", 0.886),
			ABCDRatioMin:     getEnvAsFloat("HARMONIC_ABCD_RATIO_MIN", 0.618),
			ABCDRatioMax:     getEnvAsFloat("HARMONIC_ABCD_RATIO_MAX", 1.618),
			FibTolerance:     getEnvAsFloat("HARMONIC_FIB_TOLERANCE", 0.005),
			MinStrength:      getEnvAsFloat("HARMONIC_MIN_STRENGTH", 70),
			PatternTTL:       getEnvAsDuration("HARMONIC_PATTERN_TTL", 24*time.Hour),
		},
		Confluence: ConfluenceConfig{
			MinSatisfied:     getEnvAsInt("CONFLUENCE_MIN_SATISFIED", 4),
			MinWeightedScore: getEnvAsFloat("CONFLUENCE_MIN_WEIGHTED_SCORE", 50),
			VolumeMultiplier: getEnvAsFloat("CONFLUENCE_VOLUME_MULTIPLIER", 1.5),
			RSIBullishMin:    getEnvAsFloat("CONFLUENCE_RSI_BULLISH_MIN", 40),
			RSIBullishMax:    getEnvAsFloat("CONFLUENCE_RSI_BULLISH_MAX", 70),
			RSIBearishMin:    getEnvAsFloat("CONFLUENCE_RSI_BEARISH_MIN", 30),
			RSIBearishMax:    getEnvAsFloat("CONFLUENCE_RSI_BEARISH_MAX", 60),
			WeightFibonacci:  getEnvAsFloat("CONFLUENCE_WEIGHT_FIBONACCI", 3),
			WeightTrend:      getEnvAsFloat("CONFLUENCE_WEIGHT_TREND", 2),
			WeightVolume:     getEnvAsFloat("CONFLUENCE_WEIGHT_VOLUME", 2),
			WeightTechnical:  getEnvAsFloat("CONFLUENCE_WEIGHT_TECHNICAL", 2),
			WeightRSI:        getEnvAsFloat("CONFLUENCE_WEIGHT_RSI", 1),
			WeightMACD:       getEnvAsFloat("CONFLUENCE_WEIGHT_MACD", 1),
			EMAPeriods:       getEnvAsIntSlice("CONFLUENCE_EMA_PERIODS", []int{20, 50, 100}),
		},
		Session: SessionConfig{
			Boundaries: SessionBoundary{
				PremarketOpen: getEnvAsInt("SESSION_PREMARKET_OPEN_MIN", 4*60),
				MarketOpen:    getEnvAsInt("SESSION_MARKET_OPEN_MIN", 9*60+30),
				MarketClose:   getEnvAsInt("SESSION_MARKET_CLOSE_MIN", 16*60),
				AfterhoursEnd: getEnvAsInt("SESSION_AFTERHOURS_END_MIN", 20*60),
			},
			PremarketInterval:   getEnvAsDuration("SESSION_PREMARKET_INTERVAL", 2*time.Minute),
			IntradayInterval:    getEnvAsDuration("SESSION_INTRADAY_INTERVAL", 1*time.Minute),
			AfterhoursInterval:  getEnvAsDuration("SESSION_AFTERHOURS_INTERVAL", 5*time.Minute),
			ClosedInterval:      getEnvAsDuration("SESSION_CLOSED_INTERVAL", 10*time.Minute),
			PremarketRisk:       getEnvAsFloat("SESSION_PREMARKET_RISK", 0.7),
			IntradayRisk:        getEnvAsFloat("SESSION_INTRADAY_RISK", 1.0),
			AfterhoursRisk:      getEnvAsFloat("SESSION_AFTERHOURS_RISK", 0.5),
			ClosedRisk:          getEnvAsFloat("SESSION_CLOSED_RISK", 0.3),
			PremarketAPIBudget:  getEnvAsInt("SESSION_PREMARKET_API_BUDGET", 60),
			IntradayAPIBudget:   getEnvAsInt("SESSION_INTRADAY_API_BUDGET", 120),
			AfterhoursAPIBudget: getEnvAsInt("SESSION_AFTERHOURS_API_BUDGET", 30),
			ClosedAPIBudget:     getEnvAsInt("SESSION_CLOSED_API_BUDGET", 10),
		},
		Risk: RiskConfig{
			AccountEquity:      getEnvAsFloat("RISK_ACCOUNT_EQUITY", 100_000),
			MaxRiskPerTrade:    getEnvAsFloat("RISK_MAX_PER_TRADE", 0.02),
			MaxPositionSize:    getEnvAsFloat("RISK_MAX_POSITION_SIZE", 0.25),
			RiskRewardRatio:    getEnvAsFloat("RISK_REWARD_RATIO", 2.0),
			StopPolicy:         getEnv("RISK_STOP_POLICY", "anchor"),
			StopBufferFraction: getEnvAsFloat("RISK_STOP_BUFFER_FRACTION", 0.002),
			ATRMultiplier:      getEnvAsFloat("RISK_ATR_MULTIPLIER", 1.5),
			AgreementBonus:     getEnvAsFloat("RISK_AGREEMENT_BONUS", 0.05),
			AgreementWindow:    getEnvAsDuration("RISK_AGREEMENT_WINDOW", 15*time.Minute),
		},
		Throttle: ThrottleConfig{
			MaxSignalsPerDay: getEnvAsInt("THROTTLE_MAX_SIGNALS_PER_DAY", 3),
			Cooldown:         getEnvAsDuration("THROTTLE_COOLDOWN", 30*time.Minute),
		},
		Feed: FeedConfig{
			WebSocketURL:      getEnv("FEED_WS_URL", ""),
			ReconnectDelay:    getEnvAsDuration("FEED_RECONNECT_DELAY", 1*time.Second),
			MaxReconnectDelay: getEnvAsDuration("FEED_MAX_RECONNECT_DELAY", 30*time.Second),
			BufferSize:        getEnvAsInt("FEED_BUFFER_SIZE", 1000),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			SignalStream: getEnv("REDIS_SIGNAL_STREAM", "signals"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "pattern_scanner"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			Port: getEnvAsInt("API_PORT", 8080),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration. Invalid threshold combinations
// are fatal at startup; nothing downgrades them at runtime.
func (c *Config) Validate() error {
	if len(c.Engine.Watchlist) == 0 {
		return fmt.Errorf("ENGINE_WATCHLIST must contain at least one symbol")
	}
	if c.Engine.MaxHistoryBars < 3 {
		return fmt.Errorf("ENGINE_MAX_HISTORY_BARS must be at least 3")
	}
	if c.Engine.WorkerCount < 1 {
		return fmt.Errorf("ENGINE_WORKER_COUNT must be at least 1")
	}
	if c.Engine.Timezone == "" {
		return fmt.Errorf("ENGINE_TIMEZONE must not be empty")
	}

	if c.Confluence.MinSatisfied < 0 || c.Confluence.MinSatisfied > 6 {
		return fmt.Errorf("CONFLUENCE_MIN_SATISFIED must be between 0 and 6 (factor count)")
	}
	if len(c.Confluence.EMAPeriods) < 2 {
		return fmt.Errorf("CONFLUENCE_EMA_PERIODS must contain at least two periods")
	}
	for i := 1; i < len(c.Confluence.EMAPeriods); i++ {
		if c.Confluence.EMAPeriods[i] <= c.Confluence.EMAPeriods[i-1] {
			return fmt.Errorf("CONFLUENCE_EMA_PERIODS must be strictly increasing")
		}
	}

	if c.Harmonic.BCRetraceMin >= c.Harmonic.BCRetraceMax {
		return fmt.Errorf("HARMONIC_BC_RETRACE bounds are inverted")
	}
	if c.Harmonic.ABCDRatioMin >= c.Harmonic.ABCDRatioMax {
		return fmt.Errorf("HARMONIC_ABCD_RATIO bounds are inverted")
	}
	if c.Harmonic.SwingWindow < 1 {
		return fmt.Errorf("HARMONIC_SWING_WINDOW must be at least 1")
	}

	b := c.Session.Boundaries
	if !(b.PremarketOpen < b.MarketOpen && b.MarketOpen < b.MarketClose && b.MarketClose < b.AfterhoursEnd) {
		return fmt.Errorf("session boundaries must be strictly increasing")
	}

	if c.Risk.AccountEquity <= 0 {
		return fmt.Errorf("RISK_ACCOUNT_EQUITY must be positive")
	}
	if c.Risk.MaxRiskPerTrade <= 0 || c.Risk.MaxRiskPerTrade > 1 {
		return fmt.Errorf("RISK_MAX_PER_TRADE must be in (0, 1]")
	}
	if c.Risk.MaxPositionSize <= 0 || c.Risk.MaxPositionSize > 1 {
		return fmt.Errorf("RISK_MAX_POSITION_SIZE must be in (0, 1]")
	}
	if c.Risk.RiskRewardRatio <= 0 {
		return fmt.Errorf("RISK_REWARD_RATIO must be positive")
	}
	if c.Risk.StopPolicy != "anchor" && c.Risk.StopPolicy != "atr" {
		return fmt.Errorf("RISK_STOP_POLICY must be %q or %q", "anchor", "atr")
	}

	if c.Throttle.MaxSignalsPerDay < 1 {
		return fmt.Errorf("THROTTLE_MAX_SIGNALS_PER_DAY must be at least 1")
	}
	if c.Throttle.Cooldown < 0 {
		return fmt.Errorf("THROTTLE_COOLDOWN must not be negative")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

func getEnvAsIntSlice(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		intValue, err := strconv.Atoi(trimmed)
		if err != nil {
			return defaultValue
		}
		result = append(result, intValue)
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

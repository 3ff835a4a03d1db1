package models

import "errors"

var (
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrNonNumeric        = errors.New("non-numeric candle field")
	ErrInvalidOHLC       = errors.New("invalid ohlc (high/low inconsistent with open/close)")
	ErrSubMinimumRange   = errors.New("candle range below configured minimum")
	ErrOutOfOrderCandle  = errors.New("candle timestamp not after previous candle")
	ErrDuplicateCandle   = errors.New("duplicate candle timestamp")
	ErrInsufficientBars  = errors.New("insufficient history")
	ErrDegenerateRisk    = errors.New("degenerate risk distance (entry equals stop)")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInvalidSignal     = errors.New("invalid trade signal")
)

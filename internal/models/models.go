// Package models provides domain models for the signal engine.
package models

import (
	"time"
)

// Resolution represents the bar size of a candle series.
type Resolution string

const (
	Resolution1Min  Resolution = "1m"
	Resolution5Min  Resolution = "5m"
	Resolution1Hour Resolution = "1h"
)

// AllResolutions returns the resolutions the engine consumes, slowest first.
func AllResolutions() []Resolution {
	return []Resolution{Resolution1Hour, Resolution5Min, Resolution1Min}
}

// Duration returns the bar length of the resolution.
func (r Resolution) Duration() time.Duration {
	switch r {
	case Resolution1Min:
		return time.Minute
	case Resolution5Min:
		return 5 * time.Minute
	case Resolution1Hour:
		return time.Hour
	default:
		return 0
	}
}

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	return r.Duration() > 0
}

// ParseResolution parses "1m", "5m" or "1h".
func ParseResolution(s string) (Resolution, bool) {
	r := Resolution(s)
	return r, r.Valid()
}

// OrderSide represents the side of a trade.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// TrendState is the classification produced by the trend filter.
type TrendState string

const (
	TrendBullish TrendState = "BULLISH"
	TrendBearish TrendState = "BEARISH"
	TrendNeutral TrendState = "NEUTRAL"
)

// TrendContext carries the higher-timeframe trend read at decision time.
type TrendContext struct {
	Macro    TrendState `json:"macro"`
	Intraday TrendState `json:"intraday"`
}

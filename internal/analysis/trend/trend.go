// Package trend classifies higher-timeframe trend state for the signal engine.
package trend

import (
	"github.com/rs/zerolog"

	"github.com/umair24171/scalp-agent/internal/analysis/indicators"
	"github.com/umair24171/scalp-agent/internal/models"
)

// Config holds trend filter parameters.
type Config struct {
	MinBars int

	MacroFastEMA int
	MacroSlowEMA int
	MacroMinADX  float64

	IntradayFastEMA int
	IntradayMidEMA  int
	IntradaySlowEMA int
	IntradayMinADX  float64

	ADXPeriod int
}

// DefaultConfig returns the 1h/5m parameters the engine trades with.
func DefaultConfig() Config {
	return Config{
		MinBars:         55,
		MacroFastEMA:    21,
		MacroSlowEMA:    50,
		MacroMinADX:     20,
		IntradayFastEMA: 9,
		IntradayMidEMA:  21,
		IntradaySlowEMA: 50,
		IntradayMinADX:  25,
		ADXPeriod:       14,
	}
}

// Filter reads macro (1h) and intraday (5m) trend from candles.
//
// Any indicator failure yields TrendNeutral. Neutral never permits a trade on
// its own (intraday must be Bearish) and never blocks one (only a Bullish
// macro does), so a failure leaves the filter silent rather than open.
type Filter struct {
	cfg    Config
	calc   indicators.Calculator
	logger zerolog.Logger
}

// NewFilter creates a trend filter.
func NewFilter(cfg Config, calc indicators.Calculator, logger zerolog.Logger) *Filter {
	return &Filter{
		cfg:    cfg,
		calc:   calc,
		logger: logger.With().Str("component", "trend").Logger(),
	}
}

// Macro classifies the 1h trend as Bullish, Bearish or Neutral.
func (f *Filter) Macro(symbol string, candles []models.Candle) models.TrendState {
	if len(candles) < f.cfg.MinBars {
		f.failSafe(symbol, "macro", "insufficient candles", nil, len(candles))
		return models.TrendNeutral
	}

	fast, err := f.calc.EMA(candles, f.cfg.MacroFastEMA)
	if err != nil || len(fast) == 0 {
		f.failSafe(symbol, "macro", "fast EMA", err, len(candles))
		return models.TrendNeutral
	}
	slow, err := f.calc.EMA(candles, f.cfg.MacroSlowEMA)
	if err != nil || len(slow) == 0 {
		f.failSafe(symbol, "macro", "slow EMA", err, len(candles))
		return models.TrendNeutral
	}
	adx, err := f.calc.ADX(candles, f.cfg.ADXPeriod)
	if err != nil || len(adx) == 0 {
		f.failSafe(symbol, "macro", "ADX", err, len(candles))
		return models.TrendNeutral
	}

	price := candles[len(candles)-1].Close
	emaFast, emaSlow, strength := fast.Last(), slow.Last(), adx.Last()

	state := models.TrendNeutral
	switch {
	case strength < f.cfg.MacroMinADX:
	case emaFast > emaSlow && price > emaFast:
		state = models.TrendBullish
	case emaFast < emaSlow && price < emaFast:
		state = models.TrendBearish
	}

	f.logger.Debug().
		Str("symbol", symbol).
		Str("timeframe", "macro").
		Float64("ema_fast", emaFast).
		Float64("ema_slow", emaSlow).
		Float64("adx", strength).
		Float64("price", price).
		Str("state", string(state)).
		Msg("Trend evaluated")

	return state
}

// Intraday classifies the 5m trend. Only Bearish or Neutral is produced.
func (f *Filter) Intraday(symbol string, candles []models.Candle) models.TrendState {
	if len(candles) < f.cfg.MinBars {
		f.failSafe(symbol, "intraday", "insufficient candles", nil, len(candles))
		return models.TrendNeutral
	}

	periods := []int{f.cfg.IntradayFastEMA, f.cfg.IntradayMidEMA, f.cfg.IntradaySlowEMA}
	emas := make([]float64, len(periods))
	for i, p := range periods {
		s, err := f.calc.EMA(candles, p)
		if err != nil || len(s) == 0 {
			f.failSafe(symbol, "intraday", "EMA", err, len(candles))
			return models.TrendNeutral
		}
		emas[i] = s.Last()
	}
	adx, err := f.calc.ADX(candles, f.cfg.ADXPeriod)
	if err != nil || len(adx) == 0 {
		f.failSafe(symbol, "intraday", "ADX", err, len(candles))
		return models.TrendNeutral
	}

	price := candles[len(candles)-1].Close
	fast, mid, slow := emas[0], emas[1], emas[2]

	state := models.TrendNeutral
	if fast < mid && mid < slow && price < fast && adx.Last() >= f.cfg.IntradayMinADX {
		state = models.TrendBearish
	}

	f.logger.Debug().
		Str("symbol", symbol).
		Str("timeframe", "intraday").
		Float64("ema_fast", fast).
		Float64("ema_mid", mid).
		Float64("ema_slow", slow).
		Float64("adx", adx.Last()).
		Float64("price", price).
		Str("state", string(state)).
		Msg("Trend evaluated")

	return state
}

func (f *Filter) failSafe(symbol, timeframe, what string, err error, bars int) {
	event := f.logger.Debug().
		Str("symbol", symbol).
		Str("timeframe", timeframe).
		Int("bars", bars).
		Str("fail_safe", string(models.TrendNeutral))
	if err != nil {
		event = event.Err(err)
	}
	event.Msgf("Trend unavailable: %s", what)
}

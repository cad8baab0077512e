// Package indicators provides pure technical indicator calculations over
// chronologically ordered candles.
package indicators

import "github.com/umair24171/scalp-agent/internal/models"

// Calculator is the indicator service consumed by the trend filter and the
// setup detector. Implementations must be pure: the same candles always
// produce the same series, and short input is reported as ErrInsufficientData.
type Calculator interface {
	EMA(candles []models.Candle, period int) (Series, error)
	RSI(candles []models.Candle, period int) (Series, error)
	ATR(candles []models.Candle, period int) (Series, error)
	ADX(candles []models.Candle, period int) (Series, error)
	Stochastic(candles []models.Candle, kPeriod, dPeriod int) (StochasticSeries, error)
	MACD(candles []models.Candle, fast, slow, signal int) (MACDSeries, error)
}

// Standard computes indicators with the definitions in this package.
type Standard struct{}

var _ Calculator = Standard{}

func (Standard) EMA(candles []models.Candle, period int) (Series, error) {
	return NewEMA(period).Calculate(candles)
}

func (Standard) RSI(candles []models.Candle, period int) (Series, error) {
	return NewRSI(period).Calculate(candles)
}

func (Standard) ATR(candles []models.Candle, period int) (Series, error) {
	return NewATR(period).Calculate(candles)
}

func (Standard) ADX(candles []models.Candle, period int) (Series, error) {
	return NewADX(period).Calculate(candles)
}

func (Standard) Stochastic(candles []models.Candle, kPeriod, dPeriod int) (StochasticSeries, error) {
	return NewStochastic(kPeriod, dPeriod).Calculate(candles)
}

func (Standard) MACD(candles []models.Candle, fast, slow, signal int) (MACDSeries, error) {
	return NewMACD(fast, slow, signal).Calculate(candles)
}

// Package enginetest provides fixtures for exercising the engine without
// hand-crafting indicator-perfect price history.
package enginetest

import (
	"time"

	"github.com/umair24171/scalp-agent/internal/analysis/indicators"
	"github.com/umair24171/scalp-agent/internal/models"
)

// Tuesday is midnight UTC of a regular session day.
var Tuesday = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

// At returns hour:minute UTC on Tuesday.
func At(hour, minute int) time.Time {
	return Tuesday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// QualifiedSnapshot passes every setup rule: price tapped EMA21 and turned
// below EMA8, RSI is falling from 62, the stochastic just crossed down and
// the MACD histogram is negative and accelerating. Entry at Close with the
// default settings gives stop 100.5 and target 97.7.
func QualifiedSnapshot() models.Snapshot {
	return models.Snapshot{
		Close:        99.5,
		PrevClose:    99.8,
		EMA8:         99.9,
		PrevEMA8:     100.0,
		EMA21:        100.0,
		PrevEMA21:    100.1,
		RSI:          45,
		PrevRSI:      62,
		ATR:          1.0,
		StochK:       60,
		StochD:       70,
		PrevStochK:   80,
		PrevStochD:   75,
		MACDHist:     -0.05,
		PrevMACDHist: -0.02,
		PullbackHigh: 100.1,
	}
}

// ScriptedCalculator serves Snap for 1-minute series and delegates every
// other timeframe to the real calculator.
type ScriptedCalculator struct {
	indicators.Standard
	Snap models.Snapshot
}

func isMinuteSeries(candles []models.Candle) bool {
	return len(candles) > 1 && candles[1].Timestamp.Sub(candles[0].Timestamp) == time.Minute
}

func (c ScriptedCalculator) EMA(candles []models.Candle, period int) (indicators.Series, error) {
	if !isMinuteSeries(candles) {
		return c.Standard.EMA(candles, period)
	}
	switch period {
	case 8:
		return indicators.Series{c.Snap.PrevEMA8, c.Snap.EMA8}, nil
	case 21:
		return indicators.Series{c.Snap.PrevEMA21, c.Snap.EMA21}, nil
	}
	return nil, indicators.ErrInsufficientData
}

func (c ScriptedCalculator) RSI(candles []models.Candle, period int) (indicators.Series, error) {
	if !isMinuteSeries(candles) {
		return c.Standard.RSI(candles, period)
	}
	return indicators.Series{c.Snap.PrevRSI, c.Snap.RSI}, nil
}

func (c ScriptedCalculator) ATR(candles []models.Candle, period int) (indicators.Series, error) {
	if !isMinuteSeries(candles) {
		return c.Standard.ATR(candles, period)
	}
	return indicators.Series{c.Snap.ATR}, nil
}

func (c ScriptedCalculator) Stochastic(candles []models.Candle, k, d int) (indicators.StochasticSeries, error) {
	if !isMinuteSeries(candles) {
		return c.Standard.Stochastic(candles, k, d)
	}
	return indicators.StochasticSeries{
		K: indicators.Series{c.Snap.PrevStochK, c.Snap.StochK},
		D: indicators.Series{c.Snap.PrevStochD, c.Snap.StochD},
	}, nil
}

func (c ScriptedCalculator) MACD(candles []models.Candle, fast, slow, signal int) (indicators.MACDSeries, error) {
	if !isMinuteSeries(candles) {
		return c.Standard.MACD(candles, fast, slow, signal)
	}
	return indicators.MACDSeries{Histogram: indicators.Series{c.Snap.PrevMACDHist, c.Snap.MACDHist}}, nil
}

// LinearCandles returns n bars ending just before Tuesday midnight whose
// close moves by step each bar. A negative step reads as a strong downtrend
// on any timeframe.
func LinearCandles(n int, start, step float64, interval time.Duration) []models.Candle {
	ts := Tuesday.Add(-time.Duration(n) * interval)
	out := make([]models.Candle, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = models.Candle{
			Timestamp: ts.Add(time.Duration(i) * interval),
			Open:      c - step*0.3,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
		}
	}
	return out
}

// MinuteCandles returns n 1-minute bars from 12:00 carrying the closes and
// pullback high of s.
func MinuteCandles(s models.Snapshot, n int) []models.Candle {
	start := At(12, 0)
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      99.9, High: s.PullbackHigh, Low: 99.0, Close: 99.9,
		}
	}
	out[n-2].Close = s.PrevClose
	out[n-1].Close = s.Close
	out[n-1].High = s.PrevClose
	return out
}

// BearishHistory returns 1h and 5m series in a clear downtrend.
func BearishHistory() (hourly, fiveMinute []models.Candle) {
	return LinearCandles(60, 2100, -1, time.Hour), LinearCandles(60, 2050, -1, 5*time.Minute)
}

// pullbackBars is a half-hour of gold 1-minute bars: a steady grind lower,
// a four-bar bounce into the slow EMA and a rejection bar that closes back
// under the fast EMA.
var pullbackBars = [][4]float64{
	// open, high, low, close
	{2000.00, 2000.10, 1999.65, 1999.78},
	{1999.78, 1999.85, 1999.48, 1999.56},
	{1999.56, 1999.69, 1999.21, 1999.34},
	{1999.34, 1999.40, 1999.00, 1999.11},
	{1999.11, 1999.20, 1998.77, 1998.89},
	{1998.89, 1998.96, 1998.56, 1998.67},
	{1998.67, 1998.74, 1998.32, 1998.45},
	{1998.45, 1998.57, 1998.12, 1998.22},
	{1998.22, 1998.33, 1997.91, 1997.99},
	{1997.99, 1998.04, 1997.69, 1997.76},
	{1997.76, 1997.87, 1997.41, 1997.53},
	{1997.53, 1997.66, 1997.24, 1997.31},
	{1997.31, 1997.40, 1996.99, 1997.08},
	{1997.08, 1997.20, 1996.73, 1996.86},
	{1996.86, 1996.91, 1996.56, 1996.63},
	{1996.63, 1996.70, 1996.32, 1996.40},
	{1996.40, 1996.47, 1996.10, 1996.18},
	{1996.18, 1996.29, 1995.88, 1995.96},
	{1995.96, 1996.04, 1995.68, 1995.73},
	{1995.73, 1995.81, 1995.40, 1995.51},
	{1995.51, 1995.57, 1995.18, 1995.29},
	{1995.29, 1995.42, 1994.93, 1995.06},
	{1995.06, 1995.17, 1994.75, 1994.84},
	{1994.84, 1994.95, 1994.53, 1994.62},
	{1994.62, 1994.75, 1994.34, 1994.39},
	{1994.39, 1994.95, 1994.30, 1994.85},
	{1994.85, 1995.40, 1994.77, 1995.31},
	{1995.31, 1995.83, 1995.20, 1995.77},
	{1995.77, 1996.31, 1995.68, 1996.23},
	{1996.23, 1996.36, 1994.75, 1994.86},
}

// PullbackClose is the close of the last bar in PullbackMinuteCandles.
const PullbackClose = 1994.86

// PullbackMinuteCandles returns 30 closed 1-minute bars from 12:00 to 12:29
// on Tuesday that form a qualifying short setup under the standard
// indicators. Paired with BearishHistory it yields a SELL at 12:30.
func PullbackMinuteCandles() []models.Candle {
	start := At(12, 0)
	out := make([]models.Candle, len(pullbackBars))
	for i, b := range pullbackBars {
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      b[0], High: b[1], Low: b[2], Close: b[3],
		}
	}
	return out
}

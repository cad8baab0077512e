package indicators

import (
	"fmt"
	"math"

	"github.com/umair24171/scalp-agent/internal/models"
)

// RSI calculates the Relative Strength Index.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Calculate(candles []models.Candle) (Series, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < r.period+1 {
		return nil, ErrInsufficientData
	}
	if err := validate(candles); err != nil {
		return nil, err
	}

	closes := closePrices(candles)
	n := len(closes)
	result := make(Series, 0, n-r.period)

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	// First average using SMA, then Wilder smoothing.
	avgGain := mean(gains[1 : r.period+1])
	avgLoss := mean(losses[1 : r.period+1])
	result = append(result, rsiValue(avgGain, avgLoss))

	for i := r.period + 1; i < n; i++ {
		avgGain = (avgGain*float64(r.period-1) + gains[i]) / float64(r.period)
		avgLoss = (avgLoss*float64(r.period-1) + losses[i]) / float64(r.period)
		result = append(result, rsiValue(avgGain, avgLoss))
	}

	return result, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// StochasticSeries holds aligned %K and %D values.
type StochasticSeries struct {
	K Series
	D Series
}

// Stochastic calculates the Stochastic Oscillator (%K and %D).
type Stochastic struct {
	kPeriod int
	dPeriod int
}

// NewStochastic creates a new Stochastic indicator.
func NewStochastic(kPeriod, dPeriod int) *Stochastic {
	return &Stochastic{
		kPeriod: kPeriod,
		dPeriod: dPeriod,
	}
}

func (s *Stochastic) Name() string {
	return fmt.Sprintf("Stochastic_%d_%d", s.kPeriod, s.dPeriod)
}

func (s *Stochastic) Period() int {
	return s.kPeriod + s.dPeriod - 1
}

func (s *Stochastic) Calculate(candles []models.Candle) (StochasticSeries, error) {
	if s.kPeriod <= 0 || s.dPeriod <= 0 {
		return StochasticSeries{}, ErrInvalidPeriod
	}
	if len(candles) < s.Period() {
		return StochasticSeries{}, ErrInsufficientData
	}
	if err := validate(candles); err != nil {
		return StochasticSeries{}, err
	}

	n := len(candles)
	percentK := make(Series, 0, n-s.kPeriod+1)
	for i := s.kPeriod - 1; i < n; i++ {
		window := candles[i-s.kPeriod+1 : i+1]
		highs := make([]float64, len(window))
		lows := make([]float64, len(window))
		for j, c := range window {
			highs[j] = c.High
			lows[j] = c.Low
		}
		highestHigh := highest(highs)
		lowestLow := lowest(lows)

		if highestHigh == lowestLow {
			percentK = append(percentK, 50)
		} else {
			k := 100 * ((candles[i].Close - lowestLow) / (highestHigh - lowestLow))
			percentK = append(percentK, math.Max(0, math.Min(100, k)))
		}
	}

	// %D is the SMA of %K.
	percentD := make(Series, 0, len(percentK)-s.dPeriod+1)
	for i := s.dPeriod - 1; i < len(percentK); i++ {
		percentD = append(percentD, mean(percentK[i-s.dPeriod+1:i+1]))
	}

	return StochasticSeries{
		K: percentK[len(percentK)-len(percentD):],
		D: percentD,
	}, nil
}

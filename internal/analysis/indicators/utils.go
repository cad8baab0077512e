package indicators

import (
	"errors"
	"math"

	apperrors "github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
)

var (
	// ErrInsufficientData is returned when there's not enough data for calculation.
	// It is the shared sentinel from internal/errors.
	ErrInsufficientData = apperrors.ErrInsufficientData
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInvalidInput is returned for non-finite or inverted price data.
	ErrInvalidInput = errors.New("invalid price data")
)

// Series is an indicator output aligned to the end of its input: the last
// element belongs to the last candle. It is shorter than the input by the
// indicator's warm-up length.
type Series []float64

// Last returns the newest value.
func (s Series) Last() float64 {
	return s[len(s)-1]
}

// Prev returns the value before the newest one.
func (s Series) Prev() float64 {
	return s[len(s)-2]
}

// HasHistory reports whether the series holds at least n values.
func (s Series) HasHistory(n int) bool {
	return len(s) >= n
}

// abs returns the absolute value of a float64.
func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// trueRange calculates the true range for a candle.
func trueRange(current, previous models.Candle) float64 {
	highLow := current.High - current.Low
	highClose := abs(current.High - previous.Close)
	lowClose := abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}

// closePrices extracts close prices from candles.
func closePrices(candles []models.Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Close
	}
	return prices
}

// highest returns the highest value in a slice.
func highest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

// lowest returns the lowest value in a slice.
func lowest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return l
}

// validate rejects candles that would poison a calculation.
func validate(candles []models.Candle) error {
	for _, c := range candles {
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ErrInvalidInput
			}
		}
		if c.High < c.Low {
			return ErrInvalidInput
		}
	}
	return nil
}

// emaOf calculates an EMA over raw values seeded with the SMA of the first
// period values. The result has len(values)-period+1 entries.
func emaOf(values []float64, period int) Series {
	if period <= 0 || len(values) < period {
		return nil
	}

	result := make(Series, len(values)-period+1)
	multiplier := 2.0 / float64(period+1)

	result[0] = mean(values[:period])
	for i := period; i < len(values); i++ {
		j := i - period + 1
		result[j] = (values[i]-result[j-1])*multiplier + result[j-1]
	}

	return result
}

// wilderSmooth applies Wilder's smoothing seeded with the SMA of the first
// period values. The result has len(values)-period+1 entries.
func wilderSmooth(values []float64, period int) Series {
	if period <= 0 || len(values) < period {
		return nil
	}

	result := make(Series, len(values)-period+1)
	result[0] = mean(values[:period])

	multiplier := 1.0 / float64(period)
	for i := period; i < len(values); i++ {
		j := i - period + 1
		result[j] = result[j-1] + multiplier*(values[i]-result[j-1])
	}

	return result
}

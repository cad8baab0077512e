package indicators

import (
	"fmt"

	"github.com/umair24171/scalp-agent/internal/models"
)

// ATR calculates the Average True Range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR_%d", a.period)
}

func (a *ATR) Period() int {
	return a.period
}

func (a *ATR) Calculate(candles []models.Candle) (Series, error) {
	if a.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < a.period+1 {
		return nil, ErrInsufficientData
	}
	if err := validate(candles); err != nil {
		return nil, err
	}

	tr := make([]float64, len(candles))
	// First TR is just high - low
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	// SMA seed, then Wilder smoothing.
	return wilderSmooth(tr, a.period), nil
}

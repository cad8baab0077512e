package indicators

import (
	"fmt"

	"github.com/umair24171/scalp-agent/internal/models"
)

// EMA calculates Exponential Moving Average of closes.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator.
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA_%d", e.period)
}

func (e *EMA) Period() int {
	return e.period
}

func (e *EMA) Calculate(candles []models.Candle) (Series, error) {
	if e.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < e.period {
		return nil, ErrInsufficientData
	}
	if err := validate(candles); err != nil {
		return nil, err
	}

	return emaOf(closePrices(candles), e.period), nil
}

// MACDSeries holds the aligned MACD line, signal line and histogram.
type MACDSeries struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

// MACD calculates Moving Average Convergence Divergence.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

// Period is the number of candles needed for the first histogram value.
func (m *MACD) Period() int {
	return m.slowPeriod + m.signalPeriod - 1
}

func (m *MACD) Calculate(candles []models.Candle) (MACDSeries, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.signalPeriod <= 0 || m.fastPeriod >= m.slowPeriod {
		return MACDSeries{}, ErrInvalidPeriod
	}
	if len(candles) < m.Period() {
		return MACDSeries{}, ErrInsufficientData
	}
	if err := validate(candles); err != nil {
		return MACDSeries{}, err
	}

	closes := closePrices(candles)
	fastEMA := emaOf(closes, m.fastPeriod)
	slowEMA := emaOf(closes, m.slowPeriod)

	// Align the fast EMA to the slow one; both end on the last candle.
	offset := len(fastEMA) - len(slowEMA)
	macdLine := make(Series, len(slowEMA))
	for i := range slowEMA {
		macdLine[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine := emaOf(macdLine, m.signalPeriod)
	macdLine = macdLine[len(macdLine)-len(signalLine):]

	histogram := make(Series, len(signalLine))
	for i := range signalLine {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return MACDSeries{
		MACD:      macdLine,
		Signal:    signalLine,
		Histogram: histogram,
	}, nil
}

// ADX calculates Average Directional Index.
type ADX struct {
	period int
}

// NewADX creates a new ADX indicator.
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

func (a *ADX) Name() string {
	return fmt.Sprintf("ADX_%d", a.period)
}

func (a *ADX) Period() int {
	return a.period * 2
}

func (a *ADX) Calculate(candles []models.Candle) (Series, error) {
	if a.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < a.Period() {
		return nil, ErrInsufficientData
	}
	if err := validate(candles); err != nil {
		return nil, err
	}

	// Directional movement starts at the second candle.
	n := len(candles) - 1
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)

	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		if upMove > downMove && upMove > 0 {
			plusDM[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i-1] = downMove
		}
		tr[i-1] = trueRange(candles[i], candles[i-1])
	}

	smoothPlusDM := wilderSmooth(plusDM, a.period)
	smoothMinusDM := wilderSmooth(minusDM, a.period)
	smoothTR := wilderSmooth(tr, a.period)

	dx := make([]float64, len(smoothTR))
	for i := range smoothTR {
		var plusDI, minusDI float64
		if smoothTR[i] != 0 {
			plusDI = 100 * smoothPlusDM[i] / smoothTR[i]
			minusDI = 100 * smoothMinusDM[i] / smoothTR[i]
		}
		if diSum := plusDI + minusDI; diSum != 0 {
			dx[i] = 100 * abs(plusDI-minusDI) / diSum
		}
	}

	adx := wilderSmooth(dx, a.period)
	if len(adx) == 0 {
		return nil, ErrInsufficientData
	}
	return adx, nil
}

package setup

import (
	"fmt"
	"math"

	"github.com/umair24171/scalp-agent/internal/models"
)

// Rule is a named gate a snapshot must pass. Check returns false with a short
// detail when the gate fails.
type Rule struct {
	Name  string
	Check func(s models.Snapshot, cfg Config) (bool, string)
}

// DefaultRules returns the gates in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "volatility_floor", Check: volatilityFloor},
		{Name: "pullback_tap", Check: pullbackTap},
		{Name: "price_turning", Check: priceTurning},
		{Name: "rsi_rolling_over", Check: rsiRollingOver},
		{Name: "emas_sloping_down", Check: emasSlopingDown},
		{Name: "stochastic_bearish", Check: stochasticBearish},
		{Name: "macd_weakening", Check: macdWeakening},
	}
}

func volatilityFloor(s models.Snapshot, cfg Config) (bool, string) {
	if s.ATR < cfg.MinATR {
		return false, fmt.Sprintf("ATR %.3f below %.2f", s.ATR, cfg.MinATR)
	}
	return true, ""
}

// pullbackTap requires the recent high to have touched EMA21 from above
// without overshooting it.
func pullbackTap(s models.Snapshot, cfg Config) (bool, string) {
	upper := s.EMA21 + cfg.PullbackBandATR*s.ATR
	if s.PullbackHigh < s.EMA21 || s.PullbackHigh > upper {
		return false, fmt.Sprintf("high %.5f outside [%.5f, %.5f]", s.PullbackHigh, s.EMA21, upper)
	}
	if dist := tapDistance(s); dist > cfg.TapToleranceATR*s.ATR {
		return false, fmt.Sprintf("tap %.2f ATR from EMA21", dist/s.ATR)
	}
	return true, ""
}

func priceTurning(s models.Snapshot, _ Config) (bool, string) {
	if s.Close >= s.EMA8 {
		return false, "close not below EMA8"
	}
	if s.Close >= s.PrevClose {
		return false, "close not below previous close"
	}
	return true, ""
}

func rsiRollingOver(s models.Snapshot, cfg Config) (bool, string) {
	if s.RSI < cfg.MinRSI {
		return false, fmt.Sprintf("RSI %.1f below %.0f", s.RSI, cfg.MinRSI)
	}
	if s.RSI >= s.PrevRSI {
		return false, "RSI not falling"
	}
	return true, ""
}

func emasSlopingDown(s models.Snapshot, _ Config) (bool, string) {
	if s.EMA21 >= s.PrevEMA21 || s.EMA8 >= s.PrevEMA8 {
		return false, "EMA8/EMA21 not sloping down"
	}
	return true, ""
}

func stochasticBearish(s models.Snapshot, cfg Config) (bool, string) {
	if s.StochK < cfg.MinStochK {
		return false, fmt.Sprintf("%%K %.1f below %.0f", s.StochK, cfg.MinStochK)
	}
	if !freshBearishCross(s) && s.StochK >= s.StochD {
		return false, "%K above %D"
	}
	return true, ""
}

func macdWeakening(s models.Snapshot, _ Config) (bool, string) {
	if s.MACDHist >= 0 && s.MACDHist >= s.PrevMACDHist {
		return false, "MACD histogram positive and rising"
	}
	return true, ""
}

func tapDistance(s models.Snapshot) float64 {
	return math.Abs(s.PullbackHigh - s.EMA21)
}

func freshBearishCross(s models.Snapshot) bool {
	return s.PrevStochK >= s.PrevStochD && s.StochK < s.StochD
}

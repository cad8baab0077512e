package setup

import (
	"fmt"
	"math"

	"github.com/umair24171/scalp-agent/internal/models"
)

// Score computes the heuristic confidence of a snapshot that passed every
// rule, together with the bonuses that fired.
func Score(s models.Snapshot, cfg Config) (float64, []string) {
	score := cfg.BaseConfidence
	var rationale []string
	add := func(points float64, format string, args ...interface{}) {
		score += points
		rationale = append(rationale, fmt.Sprintf("+%.0f ", points)+fmt.Sprintf(format, args...))
	}

	if s.ATR > 0 {
		proximity := tapDistance(s) / s.ATR
		switch {
		case proximity < 0.15:
			add(20, "clean EMA21 tap (%.2f ATR)", proximity)
		case proximity < 0.30:
			add(12, "close EMA21 tap (%.2f ATR)", proximity)
		case proximity < 0.40:
			add(5, "loose EMA21 tap (%.2f ATR)", proximity)
		}
	}

	switch {
	case s.PrevRSI > 60 && s.RSI < s.PrevRSI:
		add(12, "RSI falling from %.1f", s.PrevRSI)
	case s.RSI > 50:
		add(6, "RSI %.1f above 50", s.RSI)
	}

	switch {
	case freshBearishCross(s):
		add(12, "fresh stochastic bearish cross")
	case s.StochK < s.StochD:
		add(5, "stochastic already crossed down")
	}

	if s.StochK > 65 && s.StochK < s.StochD {
		add(5, "stochastic rejecting overbought (%%K %.1f)", s.StochK)
	}

	if s.MACDHist < 0 {
		add(8, "MACD histogram negative")
		if s.MACDHist < s.PrevMACDHist {
			add(6, "MACD histogram accelerating down")
		}
	}

	if s.EMA21 < s.PrevEMA21 {
		add(5, "EMA21 sloping down")
	}
	if s.EMA8 < s.PrevEMA8 {
		add(4, "EMA8 sloping down")
	}

	return math.Min(score, cfg.MaxConfidence), rationale
}

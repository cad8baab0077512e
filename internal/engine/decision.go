package engine

import (
	"fmt"

	"github.com/umair24171/scalp-agent/internal/models"
)

// Action is the engine's verdict for one evaluation.
type Action string

const (
	ActionHold Action = "HOLD"
	ActionSell Action = "SELL"
)

// Hold codes name the gate that disqualified an evaluation.
const (
	HoldOutsideSession  = "outside_session"
	HoldCooldown        = "cooldown"
	HoldTradeOpen       = "trade_open"
	HoldMacroBullish    = "macro_bullish"
	HoldIntradayNeutral = "intraday_not_bearish"
	HoldNoSetup         = "no_setup"
	HoldInvalidTrade    = "invalid_trade"
)

// Decision is the result of GenerateSignal.
type Decision struct {
	Action Action              `json:"action"`
	Code   string              `json:"code,omitempty"`
	Reason string              `json:"reason,omitempty"`
	Trade  *models.Trade       `json:"trade,omitempty"`
	Setup  *models.Setup       `json:"setup,omitempty"`
	Trend  models.TrendContext `json:"trend"`
}

// IsSell reports whether the decision opened a trade.
func (d Decision) IsSell() bool {
	return d.Action == ActionSell
}

func (d Decision) String() string {
	if d.IsSell() && d.Trade != nil {
		return fmt.Sprintf("SELL %s @ %.5f (SL %.5f, TP %.5f, confidence %.0f)",
			d.Trade.Symbol, d.Trade.EntryPrice, d.Trade.StopLoss, d.Trade.TakeProfit, d.Trade.Confidence)
	}
	return fmt.Sprintf("HOLD: %s", d.Reason)
}

func hold(code, reason string, trend models.TrendContext) Decision {
	return Decision{Action: ActionHold, Code: code, Reason: reason, Trend: trend}
}

package models

import (
	"fmt"
	"time"
)

// Snapshot holds the indicator values a setup was evaluated against.
// Prev* fields belong to the bar before the current one.
type Snapshot struct {
	Close     float64 `json:"close"`
	PrevClose float64 `json:"prev_close"`

	EMA8      float64 `json:"ema8"`
	PrevEMA8  float64 `json:"prev_ema8"`
	EMA21     float64 `json:"ema21"`
	PrevEMA21 float64 `json:"prev_ema21"`

	RSI     float64 `json:"rsi"`
	PrevRSI float64 `json:"prev_rsi"`
	ATR     float64 `json:"atr"`

	StochK     float64 `json:"stoch_k"`
	StochD     float64 `json:"stoch_d"`
	PrevStochK float64 `json:"prev_stoch_k"`
	PrevStochD float64 `json:"prev_stoch_d"`

	MACDHist     float64 `json:"macd_hist"`
	PrevMACDHist float64 `json:"prev_macd_hist"`

	// PullbackHigh is the highest high of the bars preceding the current one.
	PullbackHigh float64 `json:"pullback_high"`
}

// Setup is a candidate short proposal produced by the setup detector.
type Setup struct {
	Price        float64  `json:"price"`
	StopLoss     float64  `json:"stop_loss"`
	TakeProfit   float64  `json:"take_profit"`
	RiskDistance float64  `json:"risk_distance"`
	ATR          float64  `json:"atr"`
	Confidence   float64  `json:"confidence"`
	Snapshot     Snapshot `json:"snapshot"`
	Rationale    []string `json:"rationale"`
}

// Trade represents an open short position tracked by the engine.
type Trade struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Side            OrderSide `json:"side"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	RiskDistance    float64   `json:"risk_distance"`
	RewardRiskRatio float64   `json:"reward_risk_ratio"`
	Confidence      float64   `json:"confidence"`
	ATRAtEntry      float64   `json:"atr_at_entry"`
	OpenedAt        time.Time `json:"opened_at"`
	Rationale       []string  `json:"rationale"`
}

// Validate checks the short-side level ordering.
func (t *Trade) Validate() error {
	if t.Side != OrderSideSell {
		return fmt.Errorf("unsupported side %s", t.Side)
	}
	if !(t.StopLoss > t.EntryPrice && t.EntryPrice > t.TakeProfit) {
		return fmt.Errorf("levels out of order: stop %.5f, entry %.5f, target %.5f",
			t.StopLoss, t.EntryPrice, t.TakeProfit)
	}
	if t.RiskDistance <= 0 {
		return fmt.Errorf("non-positive risk distance %.5f", t.RiskDistance)
	}
	return nil
}

// TradeResult is how a trade was closed.
type TradeResult string

const (
	ResultWin     TradeResult = "WIN"
	ResultLoss    TradeResult = "LOSS"
	ResultExpired TradeResult = "EXPIRED"
)

// TradeOutcome is a resolved trade.
type TradeOutcome struct {
	Trade      Trade       `json:"trade"`
	Result     TradeResult `json:"result"`
	RealizedR  float64     `json:"realized_r"`
	ClosePrice float64     `json:"close_price"`
	ClosedAt   time.Time   `json:"closed_at"`
}

// ExecutionReport is an out-of-band fill/close report from the execution venue.
type ExecutionReport struct {
	TradeID    string    `json:"trade_id"`
	Symbol     string    `json:"symbol"`
	Status     string    `json:"status"`
	FillPrice  float64   `json:"fill_price"`
	ClosePrice float64   `json:"close_price"`
	Profit     float64   `json:"profit"`
	ReportedAt time.Time `json:"reported_at"`
}

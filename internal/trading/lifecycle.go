package trading

import (
	"sort"
	"time"

	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
)

// LifecycleConfig holds trade resolution parameters.
type LifecycleConfig struct {
	MaxHold  time.Duration
	ExpiredR float64 // realized R booked when a trade times out
}

// DefaultLifecycleConfig returns a 20 minute hold and a -0.15R timeout.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		MaxHold:  20 * time.Minute,
		ExpiredR: -0.15,
	}
}

// Lifecycle owns at most one open trade per symbol. A symbol is either in
// NoTrade (absent) or Open (present). It is not safe for concurrent use.
type Lifecycle struct {
	cfg  LifecycleConfig
	open map[string]*models.Trade
}

// NewLifecycle creates a trade lifecycle.
func NewLifecycle(cfg LifecycleConfig) (*Lifecycle, error) {
	if cfg.MaxHold <= 0 {
		return nil, errors.NewValidationError("strategy.max_hold", cfg.MaxHold, "must be positive")
	}
	return &Lifecycle{
		cfg:  cfg,
		open: make(map[string]*models.Trade),
	}, nil
}

// HasOpenTrade reports whether the symbol is in the Open state.
func (l *Lifecycle) HasOpenTrade(symbol string) bool {
	_, ok := l.open[symbol]
	return ok
}

// OpenTrade returns a copy of the symbol's open trade.
func (l *Lifecycle) OpenTrade(symbol string) (models.Trade, bool) {
	t, ok := l.open[symbol]
	if !ok {
		return models.Trade{}, false
	}
	return *t, true
}

// OpenSymbols returns the symbols with an open trade, sorted.
func (l *Lifecycle) OpenSymbols() []string {
	symbols := make([]string, 0, len(l.open))
	for s := range l.open {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Open moves the symbol from NoTrade to Open with a short built from setup
// and the current price. It fails with ErrTradeAlreadyOpen when a trade is
// already open and with ErrInvalidTrade when the levels are not ordered
// stop > entry > target.
func (l *Lifecycle) Open(id, symbol string, setup *models.Setup, price, rewardRisk float64, at time.Time) (models.Trade, error) {
	if l.HasOpenTrade(symbol) {
		return models.Trade{}, errors.Wrapf(errors.ErrTradeAlreadyOpen, "%s", symbol)
	}

	trade := &models.Trade{
		ID:              id,
		Symbol:          symbol,
		Side:            models.OrderSideSell,
		EntryPrice:      price,
		StopLoss:        setup.StopLoss,
		TakeProfit:      setup.TakeProfit,
		RiskDistance:    setup.StopLoss - price,
		RewardRiskRatio: rewardRisk,
		Confidence:      setup.Confidence,
		ATRAtEntry:      setup.ATR,
		OpenedAt:        at,
		Rationale:       append([]string(nil), setup.Rationale...),
	}
	if err := trade.Validate(); err != nil {
		return models.Trade{}, errors.Wrap(errors.ErrInvalidTrade, err.Error())
	}

	l.open[symbol] = trade
	return *trade, nil
}

// Restore reinstates a previously opened trade, e.g. after a restart.
func (l *Lifecycle) Restore(trade models.Trade) error {
	if l.HasOpenTrade(trade.Symbol) {
		return errors.Wrapf(errors.ErrTradeAlreadyOpen, "%s", trade.Symbol)
	}
	if err := trade.Validate(); err != nil {
		return errors.Wrap(errors.ErrInvalidTrade, err.Error())
	}
	l.open[trade.Symbol] = &trade
	return nil
}

// Resolve checks the symbol's open trade against a new 1-minute candle and
// returns the outcome when the trade closes, or nil while it stays open.
//
// Stop is checked before target: when one bar touches both, the intrabar path
// is unknown and the loss is assumed.
func (l *Lifecycle) Resolve(symbol string, candle models.Candle) *models.TradeOutcome {
	trade, ok := l.open[symbol]
	if !ok {
		return nil
	}

	outcome := &models.TradeOutcome{Trade: *trade, ClosedAt: candle.Timestamp}
	switch {
	case candle.High >= trade.StopLoss:
		outcome.Result = models.ResultLoss
		outcome.RealizedR = -1
		outcome.ClosePrice = trade.StopLoss
	case candle.Low <= trade.TakeProfit:
		outcome.Result = models.ResultWin
		outcome.RealizedR = trade.RewardRiskRatio
		outcome.ClosePrice = trade.TakeProfit
	case candle.Timestamp.Sub(trade.OpenedAt) >= l.cfg.MaxHold:
		outcome.Result = models.ResultExpired
		outcome.RealizedR = l.cfg.ExpiredR
		outcome.ClosePrice = candle.Close
	default:
		return nil
	}

	delete(l.open, symbol)
	return outcome
}

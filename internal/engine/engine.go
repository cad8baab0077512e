// Package engine orchestrates the sell-only signal pipeline: session and
// cooldown gates, higher-timeframe trend, the 1-minute setup and the
// per-symbol trade lifecycle.
//
// An Engine is not safe for concurrent use. The host must serialize calls.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/umair24171/scalp-agent/internal/analysis/indicators"
	"github.com/umair24171/scalp-agent/internal/analysis/setup"
	"github.com/umair24171/scalp-agent/internal/analysis/trend"
	"github.com/umair24171/scalp-agent/internal/candles"
	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/logging"
	"github.com/umair24171/scalp-agent/internal/models"
	"github.com/umair24171/scalp-agent/internal/trading"
)

// Config aggregates the tunables of every engine component.
type Config struct {
	Setup      setup.Config
	Trend      trend.Config
	Session    trading.SessionConfig
	Lifecycle  trading.LifecycleConfig
	Capacities map[models.Resolution]int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Setup:      setup.DefaultConfig(),
		Trend:      trend.DefaultConfig(),
		Session:    trading.DefaultSessionConfig(),
		Lifecycle:  trading.DefaultLifecycleConfig(),
		Capacities: candles.DefaultCapacities(),
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Setup.RewardRisk <= 0 {
		return errors.NewValidationError("strategy.reward_risk", c.Setup.RewardRisk, "must be positive")
	}
	if c.Setup.StopATRMultiplier <= 0 {
		return errors.NewValidationError("strategy.stop_atr_multiplier", c.Setup.StopATRMultiplier, "must be positive")
	}
	if c.Setup.MinConfidence < 0 || c.Setup.MinConfidence > 100 {
		return errors.NewValidationError("strategy.min_confidence", c.Setup.MinConfidence, "must be within 0-100")
	}
	if c.Setup.MaxConfidence < c.Setup.MinConfidence || c.Setup.MaxConfidence > 100 {
		return errors.NewValidationError("strategy.max_confidence", c.Setup.MaxConfidence, "must be within min_confidence-100")
	}
	if c.Setup.MaxRiskATR <= 0 {
		return errors.NewValidationError("strategy.max_risk_atr", c.Setup.MaxRiskATR, "must be positive")
	}
	if c.Lifecycle.MaxHold <= 0 {
		return errors.NewValidationError("strategy.max_hold", c.Lifecycle.MaxHold, "must be positive")
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	for res, n := range c.Capacities {
		if n <= 0 {
			return errors.NewValidationError("candles."+string(res), n, "must be positive")
		}
	}
	return nil
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCalculator replaces the indicator implementation.
func WithCalculator(calc indicators.Calculator) Option {
	return func(e *Engine) { e.calc = calc }
}

// WithIDGenerator replaces the trade ID source.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// Engine holds all per-symbol state for one trading host.
type Engine struct {
	cfg       Config
	calc      indicators.Calculator
	newID     func() string
	candles   *candles.Store
	trend     *trend.Filter
	detector  *setup.Detector
	session   *trading.SessionGate
	lifecycle *trading.Lifecycle
	stats     *trading.Stats
	logger    zerolog.Logger
}

// New validates cfg and builds an Engine.
func New(cfg Config, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		calc:   indicators.Standard{},
		newID:  uuid.NewString,
		logger: logger.With().Str("component", "engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	session, err := trading.NewSessionGate(cfg.Session)
	if err != nil {
		return nil, err
	}
	lifecycle, err := trading.NewLifecycle(cfg.Lifecycle)
	if err != nil {
		return nil, err
	}

	e.candles = candles.NewStore(cfg.Capacities)
	e.trend = trend.NewFilter(cfg.Trend, e.calc, logger)
	e.detector = setup.NewDetector(cfg.Setup, e.calc, logger)
	e.session = session
	e.lifecycle = lifecycle
	e.stats = trading.NewStats(cfg.Setup.RewardRisk)
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Push1m appends a closed 1-minute candle.
func (e *Engine) Push1m(symbol string, c models.Candle) {
	e.candles.Push(symbol, models.Resolution1Min, c)
}

// Push5m appends a closed 5-minute candle.
func (e *Engine) Push5m(symbol string, c models.Candle) {
	e.candles.Push(symbol, models.Resolution5Min, c)
}

// Push1h appends a closed 1-hour candle.
func (e *Engine) Push1h(symbol string, c models.Candle) {
	e.candles.Push(symbol, models.Resolution1Hour, c)
}

// Load1m replaces the symbol's 1-minute history.
func (e *Engine) Load1m(symbol string, cs []models.Candle) {
	e.candles.Load(symbol, models.Resolution1Min, cs)
}

// Load5m replaces the symbol's 5-minute history.
func (e *Engine) Load5m(symbol string, cs []models.Candle) {
	e.candles.Load(symbol, models.Resolution5Min, cs)
}

// Load1h replaces the symbol's 1-hour history.
func (e *Engine) Load1h(symbol string, cs []models.Candle) {
	e.candles.Load(symbol, models.Resolution1Hour, cs)
}

// Load replaces the symbol's history at any resolution.
func (e *Engine) Load(symbol string, res models.Resolution, cs []models.Candle) {
	e.candles.Load(symbol, res, cs)
}

// Candles returns a copy of the buffered candles.
func (e *Engine) Candles(symbol string, res models.Resolution) []models.Candle {
	return e.candles.Candles(symbol, res)
}

// Trend reads the current macro and intraday trend for symbol.
func (e *Engine) Trend(symbol string) models.TrendContext {
	return models.TrendContext{
		Macro:    e.trend.Macro(symbol, e.candles.Candles(symbol, models.Resolution1Hour)),
		Intraday: e.trend.Intraday(symbol, e.candles.Candles(symbol, models.Resolution5Min)),
	}
}

// GenerateSignal evaluates symbol at ts and either opens a short at price or
// explains why not. Gates run cheapest first; the first failing gate decides.
func (e *Engine) GenerateSignal(symbol string, price float64, ts time.Time) Decision {
	logger := logging.WithSymbol(logging.WithOperation(e.logger, "generate_signal"), symbol)

	if err := e.session.CheckSession(ts); err != nil {
		return e.hold(logger, symbol, hold(HoldOutsideSession, fmt.Sprintf("outside session (%s)", sessionReason(err)), models.TrendContext{}))
	}

	if err := e.session.CheckCooldown(symbol, ts); err != nil {
		var cd *errors.CooldownError
		reason := "cooldown active"
		if errors.As(err, &cd) {
			reason = fmt.Sprintf("cooldown active (%s remaining)", cd.Remaining.Round(time.Second))
		}
		return e.hold(logger, symbol, hold(HoldCooldown, reason, models.TrendContext{}))
	}

	if open, ok := e.lifecycle.OpenTrade(symbol); ok {
		return e.hold(logger, symbol, hold(HoldTradeOpen, fmt.Sprintf("trade %s already open", open.ID), models.TrendContext{}))
	}

	tc := models.TrendContext{
		Macro:    e.trend.Macro(symbol, e.candles.Candles(symbol, models.Resolution1Hour)),
		Intraday: models.TrendNeutral,
	}
	if tc.Macro == models.TrendBullish {
		return e.hold(logger, symbol, hold(HoldMacroBullish, "macro trend bullish", tc))
	}

	tc.Intraday = e.trend.Intraday(symbol, e.candles.Candles(symbol, models.Resolution5Min))
	if tc.Intraday != models.TrendBearish {
		return e.hold(logger, symbol, hold(HoldIntradayNeutral, fmt.Sprintf("intraday trend %s", tc.Intraday), tc))
	}

	st, err := e.detector.Detect(symbol, e.candles.Candles(symbol, models.Resolution1Min), price)
	if err != nil {
		return e.hold(logger, symbol, hold(HoldNoSetup, fmt.Sprintf("no setup: %v", err), tc))
	}

	trade, err := e.lifecycle.Open(e.newID(), symbol, st, price, e.cfg.Setup.RewardRisk, ts)
	if err != nil {
		return e.hold(logger, symbol, hold(HoldInvalidTrade, err.Error(), tc))
	}
	e.session.MarkSignal(symbol, ts)

	logging.LogSignal(logger, trade)
	return Decision{Action: ActionSell, Trade: &trade, Setup: st, Trend: tc}
}

// ResolveOpenTrade checks the symbol's open trade against a 1-minute candle.
// A closed trade is recorded in the statistics and returned; nil means the
// trade is still open or there was none.
func (e *Engine) ResolveOpenTrade(symbol string, candle models.Candle) *models.TradeOutcome {
	outcome := e.lifecycle.Resolve(symbol, candle)
	if outcome == nil {
		return nil
	}
	e.stats.Record(*outcome)
	logging.LogOutcome(logging.WithOperation(e.logger, "resolve_open_trade"), *outcome)
	return outcome
}

// OpenTrade returns the symbol's open trade, if any.
func (e *Engine) OpenTrade(symbol string) (models.Trade, bool) {
	return e.lifecycle.OpenTrade(symbol)
}

// RestoreTrade reinstates an open trade persisted by an earlier run. Its open
// time also restarts the symbol's cooldown.
func (e *Engine) RestoreTrade(trade models.Trade) error {
	if err := e.lifecycle.Restore(trade); err != nil {
		return err
	}
	e.RestoreSignal(trade.Symbol, trade.OpenedAt)
	return nil
}

// RestoreSignal records a sell emitted by an earlier run so the cooldown
// spans restarts. Older times than the one already held are ignored.
func (e *Engine) RestoreSignal(symbol string, at time.Time) {
	if last, ok := e.session.LastSignal(symbol); !ok || at.After(last) {
		e.session.MarkSignal(symbol, at)
	}
}

// OpenSymbols lists symbols with an open trade.
func (e *Engine) OpenSymbols() []string {
	return e.lifecycle.OpenSymbols()
}

// Stats returns a snapshot of the performance counters.
func (e *Engine) Stats() trading.StatsReport {
	return e.stats.Report()
}

// RecordOutcome feeds an externally resolved outcome into the statistics.
func (e *Engine) RecordOutcome(o models.TradeOutcome) {
	e.stats.Record(o)
}

func (e *Engine) hold(logger zerolog.Logger, symbol string, d Decision) Decision {
	logging.LogHold(logger, symbol, d.Code, d.Reason)
	return d
}

// sessionReason strips the sentinel suffix from a session error.
func sessionReason(err error) string {
	return strings.TrimSuffix(err.Error(), ": "+errors.ErrOutsideSession.Error())
}

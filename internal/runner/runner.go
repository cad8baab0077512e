// Package runner drives the engine on a polling schedule: it feeds closed
// bars in, resolves open trades, asks for a signal and hands sells to the
// execution bridge.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/umair24171/scalp-agent/internal/bridge"
	"github.com/umair24171/scalp-agent/internal/engine"
	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/feed"
	"github.com/umair24171/scalp-agent/internal/logging"
	"github.com/umair24171/scalp-agent/internal/models"
	"github.com/umair24171/scalp-agent/internal/store"
)

// Config holds runner configuration.
type Config struct {
	Symbols      []string
	Schedule     string // cron spec with a leading seconds field
	FetchTimeout time.Duration
	// Limits is how many bars to fetch per resolution.
	Limits map[models.Resolution]int
}

// Runner is the single writer of engine state. Ticks never overlap.
type Runner struct {
	cfg    Config
	engine *engine.Engine
	feed   feed.Feed
	bridge bridge.Bridge
	store  store.DataStore
	now    func() time.Time
	logger zerolog.Logger

	// pending holds outcomes the engine has booked but the store has not.
	pending map[string]models.TradeOutcome
}

// New creates a runner.
func New(cfg Config, eng *engine.Engine, f feed.Feed, b bridge.Bridge, s store.DataStore, logger zerolog.Logger) *Runner {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.Limits == nil {
		cfg.Limits = eng.Config().Capacities
	}
	return &Runner{
		cfg:    cfg,
		engine: eng,
		feed:   f,
		bridge: b,
		store:  s,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("component", "runner").Logger(),

		pending: make(map[string]models.TradeOutcome),
	}
}

// Restore replays persisted outcomes into the engine statistics and
// reinstates trades that were still open when the previous run stopped.
func (r *Runner) Restore(ctx context.Context) error {
	outcomes, err := r.store.GetOutcomes(ctx, store.TradeFilter{})
	if err != nil {
		return fmt.Errorf("loading outcomes: %w", err)
	}
	for _, o := range outcomes {
		r.engine.RecordOutcome(o)
		r.engine.RestoreSignal(o.Trade.Symbol, o.Trade.OpenedAt)
	}

	open, err := r.store.GetTrades(ctx, store.TradeFilter{Status: store.TradeStatusOpen})
	if err != nil {
		return fmt.Errorf("loading open trades: %w", err)
	}
	for _, t := range open {
		if err := r.engine.RestoreTrade(t); err != nil {
			r.logger.Warn().Err(err).Str("trade_id", t.ID).Str("symbol", t.Symbol).Msg("Skipping stored open trade")
			continue
		}
		r.logger.Info().Str("trade_id", t.ID).Str("symbol", t.Symbol).Time("opened_at", t.OpenedAt).Msg("Open trade restored")
	}

	r.logger.Info().Int("outcomes", len(outcomes)).Int("open_trades", len(open)).Msg("State restored")
	return nil
}

// Run ticks on the configured schedule until ctx is cancelled, then waits
// for a running tick to finish.
func (r *Runner) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{r.logger}),
		cron.WithChain(cron.Recover(cronLogger{r.logger}), cron.SkipIfStillRunning(cronLogger{r.logger})),
	)
	if _, err := c.AddFunc(r.cfg.Schedule, func() {
		if err := r.Tick(ctx, r.now()); err != nil {
			r.logger.Error().Err(err).Msg("Tick failed")
		}
	}); err != nil {
		return fmt.Errorf("register tick: %w", err)
	}

	c.Start()
	r.logger.Info().Strs("symbols", r.cfg.Symbols).Str("schedule", r.cfg.Schedule).Msg("Runner started")

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info().Msg("Runner stopped")
	return nil
}

// Tick processes every symbol once at ts, then collects bridge reports.
// Per-symbol failures are logged and do not stop the other symbols.
func (r *Runner) Tick(ctx context.Context, ts time.Time) error {
	for _, symbol := range r.cfg.Symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := r.TickSymbol(ctx, symbol, ts); err != nil {
			logger := logging.WithSymbol(r.logger, symbol)
			logger.Warn().Err(err).Msg("Symbol tick failed")
		}
	}
	return r.collectReports(ctx)
}

// TickSymbol refreshes the symbol's bars, resolves its open trade against
// bars it has not seen yet and evaluates a new signal at ts.
func (r *Runner) TickSymbol(ctx context.Context, symbol string, ts time.Time) (engine.Decision, error) {
	logger := logging.WithSymbol(r.logger, symbol)

	for _, res := range models.AllResolutions() {
		candles, err := r.fetch(ctx, symbol, res, ts)
		if err != nil {
			if errors.Is(err, errors.ErrDataNotFound) {
				logger.Debug().Str("resolution", string(res)).Msg("No bars available")
				continue
			}
			return engine.Decision{}, err
		}
		r.engine.Load(symbol, res, candles)
	}

	if err := r.resolve(ctx, symbol); err != nil {
		return engine.Decision{}, err
	}

	minute := r.engine.Candles(symbol, models.Resolution1Min)
	if len(minute) == 0 {
		return engine.Decision{}, errors.NewDataError(string(models.Resolution1Min), symbol, "no price available", errors.ErrInsufficientData)
	}
	price := minute[len(minute)-1].Close

	d := r.engine.GenerateSignal(symbol, price, ts)
	if !d.IsSell() {
		return d, nil
	}

	if err := r.store.SaveTrade(ctx, d.Trade); err != nil {
		logger.Error().Err(err).Str("trade_id", d.Trade.ID).Msg("Failed to persist trade")
	}
	if err := r.bridge.Submit(ctx, *d.Trade); err != nil {
		logger.Error().Err(err).Str("trade_id", d.Trade.ID).Msg("Failed to hand trade to bridge")
	}
	return d, nil
}

func (r *Runner) fetch(ctx context.Context, symbol string, res models.Resolution, ts time.Time) ([]models.Candle, error) {
	fctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()
	return r.feed.Candles(fctx, symbol, res, ts, r.cfg.Limits[res])
}

// resolve walks 1-minute bars newer than both the trade's open time and the
// last bar already checked, in order, until the trade closes. The marker
// moves past the closing bar only together with the stored outcome; an
// outcome the store rejected is retried first on the next tick.
func (r *Runner) resolve(ctx context.Context, symbol string) error {
	if o, ok := r.pending[symbol]; ok {
		if err := r.persistOutcome(ctx, &o); err != nil {
			return err
		}
		delete(r.pending, symbol)
	}

	trade, ok := r.engine.OpenTrade(symbol)
	if !ok {
		return nil
	}

	key := store.ResolveKey(symbol)
	last := r.store.GetLastSync(key)
	for _, c := range r.engine.Candles(symbol, models.Resolution1Min) {
		if c.Timestamp.Before(trade.OpenedAt) || !c.Timestamp.After(last) {
			continue
		}

		outcome := r.engine.ResolveOpenTrade(symbol, c)
		if outcome == nil {
			if err := r.store.SetLastSync(key, c.Timestamp); err != nil {
				return err
			}
			continue
		}
		if err := r.persistOutcome(ctx, outcome); err != nil {
			r.pending[symbol] = *outcome
			return err
		}
		return nil
	}
	return nil
}

func (r *Runner) persistOutcome(ctx context.Context, o *models.TradeOutcome) error {
	err := r.store.SaveOutcome(ctx, o)
	if errors.Is(err, errors.ErrDataNotFound) {
		// The trade row was never written when the sell went out.
		if err := r.store.SaveTrade(ctx, &o.Trade); err != nil {
			return fmt.Errorf("persisting trade %s: %w", o.Trade.ID, err)
		}
		err = r.store.SaveOutcome(ctx, o)
	}
	if err != nil {
		return fmt.Errorf("persisting outcome of %s: %w", o.Trade.ID, err)
	}
	return nil
}

// collectReports stores venue reports; a report the store rejects stays in
// the bridge for the next tick.
func (r *Runner) collectReports(ctx context.Context) error {
	_, err := r.bridge.PollReports(ctx, func(report models.ExecutionReport) error {
		if err := r.store.SaveExecutionReport(ctx, &report); err != nil {
			return err
		}
		r.logger.Info().
			Str("trade_id", report.TradeID).
			Str("symbol", report.Symbol).
			Str("status", report.Status).
			Float64("profit", report.Profit).
			Msg("Execution report received")
		return nil
	})
	return err
}

// cronLogger adapts zerolog to cron's logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

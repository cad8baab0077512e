package runner

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/umair24171/scalp-agent/internal/engine"
	"github.com/umair24171/scalp-agent/internal/engine/enginetest"
	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
	"github.com/umair24171/scalp-agent/internal/store"
)

// fakeFeed serves fixed series and ignores until and limit.
type fakeFeed struct {
	mu     sync.Mutex
	series map[string]map[models.Resolution][]models.Candle
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{series: make(map[string]map[models.Resolution][]models.Candle)}
}

func (f *fakeFeed) set(symbol string, res models.Resolution, cs []models.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.series[symbol] == nil {
		f.series[symbol] = make(map[models.Resolution][]models.Candle)
	}
	f.series[symbol][res] = cs
}

func (f *fakeFeed) Candles(_ context.Context, symbol string, res models.Resolution, _ time.Time, _ int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs, ok := f.series[symbol][res]
	if !ok {
		return nil, errors.NewDataError(string(res), symbol, "no bars", errors.ErrDataNotFound)
	}
	return cs, nil
}

type fakeBridge struct {
	mu        sync.Mutex
	submitted []models.Trade
	reports   []models.ExecutionReport
}

func (b *fakeBridge) Submit(_ context.Context, trade models.Trade) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitted = append(b.submitted, trade)
	return nil
}

func (b *fakeBridge) PollReports(_ context.Context, handle func(models.ExecutionReport) error) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.reports {
		if err := handle(r); err != nil {
			b.reports = b.reports[i:]
			return i, err
		}
	}
	n := len(b.reports)
	b.reports = nil
	return n, nil
}

// flakyStore fails outcome and report writes while failing is set.
type flakyStore struct {
	*store.SQLiteStore
	failing bool
}

func (s *flakyStore) SaveOutcome(ctx context.Context, o *models.TradeOutcome) error {
	if s.failing {
		return errors.Wrap(errors.ErrDatabaseError, "disk I/O error")
	}
	return s.SQLiteStore.SaveOutcome(ctx, o)
}

func (s *flakyStore) SaveExecutionReport(ctx context.Context, r *models.ExecutionReport) error {
	if s.failing {
		return errors.Wrap(errors.ErrDatabaseError, "disk I/O error")
	}
	return s.SQLiteStore.SaveExecutionReport(ctx, r)
}

type fixture struct {
	runner *Runner
	engine *engine.Engine
	feed   *fakeFeed
	bridge *fakeBridge
	store  *store.SQLiteStore
}

func newFixture(t *testing.T, dbPath string, symbols ...string) *fixture {
	t.Helper()
	snap := enginetest.QualifiedSnapshot()

	eng, err := engine.New(engine.DefaultConfig(), zerolog.Nop(),
		engine.WithCalculator(enginetest.ScriptedCalculator{Snap: snap}))
	if err != nil {
		t.Fatal(err)
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	f := newFakeFeed()
	hourly, fiveMinute := enginetest.BearishHistory()
	f.set("XAUUSD", models.Resolution1Hour, hourly)
	f.set("XAUUSD", models.Resolution5Min, fiveMinute)
	f.set("XAUUSD", models.Resolution1Min, enginetest.MinuteCandles(snap, 30))

	b := &fakeBridge{}
	r := New(Config{Symbols: symbols, Schedule: "@every 1s", FetchTimeout: time.Second}, eng, f, b, s, zerolog.Nop())
	return &fixture{runner: r, engine: eng, feed: f, bridge: b, store: s}
}

// afterEntry appends bars from 12:30 on; the bar at index stopAt spikes
// through the stop.
func afterEntry(base []models.Candle, bars, stopAt int) []models.Candle {
	out := append([]models.Candle(nil), base...)
	for i := 0; i < bars; i++ {
		c := models.Candle{
			Timestamp: enginetest.At(12, 30+i),
			Open:      99.5, High: 99.9, Low: 99.2, Close: 99.4,
		}
		if i == stopAt {
			c.High = 101
		}
		out = append(out, c)
	}
	return out
}

func TestTick_SellResolveAndPersist(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, filepath.Join(t.TempDir(), "runner.db"), "XAUUSD", "EURUSD")
	fx.bridge.reports = []models.ExecutionReport{{TradeID: "x", Symbol: "XAUUSD", Status: "FILLED", ReportedAt: enginetest.At(12, 29)}}

	// EURUSD has no data; XAUUSD must still be processed.
	if err := fx.runner.Tick(ctx, enginetest.At(12, 30)); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if len(fx.bridge.submitted) != 1 {
		t.Fatalf("expected 1 submitted trade, got %d", len(fx.bridge.submitted))
	}
	trade := fx.bridge.submitted[0]
	stored, err := fx.store.GetTrades(ctx, store.TradeFilter{Status: store.TradeStatusOpen})
	if err != nil || len(stored) != 1 || stored[0].ID != trade.ID {
		t.Fatalf("expected stored open trade %s, got %+v (%v)", trade.ID, stored, err)
	}
	reports, _ := fx.store.GetExecutionReports(ctx, "x")
	if len(reports) != 1 {
		t.Errorf("expected execution report to be stored, got %d", len(reports))
	}

	// Three more bars; the third hits the stop.
	snap := enginetest.QualifiedSnapshot()
	fx.feed.set("XAUUSD", models.Resolution1Min, afterEntry(enginetest.MinuteCandles(snap, 30), 3, 2))

	d, err := fx.runner.TickSymbol(ctx, "XAUUSD", enginetest.At(12, 33))
	if err != nil {
		t.Fatalf("TickSymbol() error: %v", err)
	}
	if d.Code != engine.HoldCooldown {
		t.Errorf("expected cooldown hold after the loss, got %s (%s)", d.Code, d.Reason)
	}

	outcomes, err := fx.store.GetOutcomes(ctx, store.TradeFilter{})
	if err != nil || len(outcomes) != 1 {
		t.Fatalf("expected 1 stored outcome, got %d (%v)", len(outcomes), err)
	}
	if outcomes[0].Result != models.ResultLoss || !outcomes[0].ClosedAt.Equal(enginetest.At(12, 32)) {
		t.Errorf("unexpected outcome %+v", outcomes[0])
	}
	if got := fx.store.GetLastSync(store.ResolveKey("XAUUSD")); !got.Equal(enginetest.At(12, 32)) {
		t.Errorf("expected resolve marker at 12:32, got %v", got)
	}
	if fx.engine.Stats().Global.Losses != 1 {
		t.Errorf("expected engine to count the loss, got %+v", fx.engine.Stats().Global)
	}
}

func TestRestore_ReplaysOutcomesAndOpenTrades(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "runner.db")

	first := newFixture(t, dbPath, "XAUUSD")
	if err := first.runner.Tick(ctx, enginetest.At(12, 30)); err != nil {
		t.Fatal(err)
	}
	if len(first.bridge.submitted) != 1 {
		t.Fatalf("expected a sell on the first run")
	}

	second := newFixture(t, dbPath, "XAUUSD")
	if err := second.runner.Restore(ctx); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	open, ok := second.engine.OpenTrade("XAUUSD")
	if !ok || open.ID != first.bridge.submitted[0].ID {
		t.Fatalf("expected restored trade, got %+v (%v)", open, ok)
	}

	d, err := second.runner.TickSymbol(ctx, "XAUUSD", enginetest.At(12, 40))
	if err != nil {
		t.Fatal(err)
	}
	if d.Code != engine.HoldTradeOpen {
		t.Errorf("expected restored trade to block new signals, got %s", d.Code)
	}
}

func TestRestore_CooldownSurvivesClosedTrade(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "runner.db")

	first := newFixture(t, dbPath, "XAUUSD")
	if err := first.runner.Tick(ctx, enginetest.At(12, 30)); err != nil {
		t.Fatal(err)
	}
	if len(first.bridge.submitted) != 1 {
		t.Fatalf("expected a sell at 12:30")
	}
	// The 12:30 bar runs through the stop; the trade closes at the next tick.
	snap := enginetest.QualifiedSnapshot()
	first.feed.set("XAUUSD", models.Resolution1Min, afterEntry(enginetest.MinuteCandles(snap, 30), 1, 0))
	if _, err := first.runner.TickSymbol(ctx, "XAUUSD", enginetest.At(12, 31)); err != nil {
		t.Fatal(err)
	}
	if _, open := first.engine.OpenTrade("XAUUSD"); open {
		t.Fatal("expected the trade to be closed before restart")
	}

	second := newFixture(t, dbPath, "XAUUSD")
	if err := second.runner.Restore(ctx); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	d, err := second.runner.TickSymbol(ctx, "XAUUSD", enginetest.At(12, 32))
	if err != nil {
		t.Fatal(err)
	}
	if d.Code != engine.HoldCooldown {
		t.Fatalf("expected cooldown hold two minutes after the 12:30 sell, got %s (%s)", d.Action, d.Reason)
	}
	if len(second.bridge.submitted) != 0 {
		t.Errorf("expected no submission inside the cooldown, got %d", len(second.bridge.submitted))
	}

	d, err = second.runner.TickSymbol(ctx, "XAUUSD", enginetest.At(12, 35))
	if err != nil {
		t.Fatal(err)
	}
	if !d.IsSell() {
		t.Errorf("expected a sell once the cooldown has elapsed, got %s (%s)", d.Code, d.Reason)
	}
}

func TestResolve_MarkerWaitsForStoredOutcome(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, filepath.Join(t.TempDir(), "runner.db"), "XAUUSD")
	if err := fx.runner.Tick(ctx, enginetest.At(12, 30)); err != nil {
		t.Fatal(err)
	}

	flaky := &flakyStore{SQLiteStore: fx.store, failing: true}
	fx.runner.store = flaky
	snap := enginetest.QualifiedSnapshot()
	fx.feed.set("XAUUSD", models.Resolution1Min, afterEntry(enginetest.MinuteCandles(snap, 30), 3, 2))

	if _, err := fx.runner.TickSymbol(ctx, "XAUUSD", enginetest.At(12, 33)); !errors.Is(err, errors.ErrDatabaseError) {
		t.Fatalf("expected the store failure to surface, got %v", err)
	}
	if got := fx.store.GetLastSync(store.ResolveKey("XAUUSD")); !got.Equal(enginetest.At(12, 31)) {
		t.Errorf("marker moved past the closing bar without an outcome: %v", got)
	}
	open, _ := fx.store.GetTrades(ctx, store.TradeFilter{Status: store.TradeStatusOpen})
	if len(open) != 1 {
		t.Fatalf("expected the trade to remain open in the store, got %d", len(open))
	}

	flaky.failing = false
	d, err := fx.runner.TickSymbol(ctx, "XAUUSD", enginetest.At(12, 34))
	if err != nil {
		t.Fatalf("TickSymbol() after recovery: %v", err)
	}
	if d.Code != engine.HoldCooldown {
		t.Errorf("expected cooldown hold, got %s (%s)", d.Code, d.Reason)
	}

	outcomes, err := fx.store.GetOutcomes(ctx, store.TradeFilter{})
	if err != nil || len(outcomes) != 1 {
		t.Fatalf("expected 1 stored outcome, got %d (%v)", len(outcomes), err)
	}
	if outcomes[0].Result != models.ResultLoss || !outcomes[0].ClosedAt.Equal(enginetest.At(12, 32)) {
		t.Errorf("unexpected outcome %+v", outcomes[0])
	}
	if got := fx.store.GetLastSync(store.ResolveKey("XAUUSD")); !got.Equal(enginetest.At(12, 32)) {
		t.Errorf("expected marker at the closing bar, got %v", got)
	}
	if got := fx.engine.Stats().Global.Losses; got != 1 {
		t.Errorf("expected the loss counted once, got %d", got)
	}
}

func TestTick_ReportsStayQueuedOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, filepath.Join(t.TempDir(), "runner.db"))
	fx.bridge.reports = []models.ExecutionReport{{TradeID: "x", Symbol: "XAUUSD", Status: "FILLED", ReportedAt: enginetest.At(12, 29)}}

	flaky := &flakyStore{SQLiteStore: fx.store, failing: true}
	fx.runner.store = flaky
	if err := fx.runner.Tick(ctx, enginetest.At(12, 30)); err == nil {
		t.Fatal("expected Tick to report the store failure")
	}
	if len(fx.bridge.reports) != 1 {
		t.Fatalf("expected the report to stay queued, got %d", len(fx.bridge.reports))
	}

	flaky.failing = false
	if err := fx.runner.Tick(ctx, enginetest.At(12, 31)); err != nil {
		t.Fatalf("Tick() after recovery: %v", err)
	}
	reports, _ := fx.store.GetExecutionReports(ctx, "x")
	if len(reports) != 1 {
		t.Errorf("expected the report stored once, got %d", len(reports))
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	fx := newFixture(t, filepath.Join(t.TempDir(), "runner.db"), "XAUUSD")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- fx.runner.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_RejectsBadSchedule(t *testing.T) {
	fx := newFixture(t, filepath.Join(t.TempDir(), "runner.db"), "XAUUSD")
	fx.runner.cfg.Schedule = "not a schedule"

	if err := fx.runner.Run(context.Background()); err == nil {
		t.Error("expected error for bad schedule")
	}
}

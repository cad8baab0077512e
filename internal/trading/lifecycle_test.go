package trading

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
)

var openedAt = utc(2024, 3, 5, 12, 30)

func testSetup() *models.Setup {
	return &models.Setup{
		Price:        2000,
		StopLoss:     2001,
		TakeProfit:   1998.2,
		RiskDistance: 1,
		ATR:          1,
		Confidence:   80,
		Rationale:    []string{"+20 clean EMA21 tap"},
	}
}

func newTestLifecycle(t *testing.T) *Lifecycle {
	t.Helper()
	l, err := NewLifecycle(DefaultLifecycleConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return l
}

func openTest(t *testing.T, l *Lifecycle, symbol string) models.Trade {
	t.Helper()
	trade, err := l.Open("id-"+symbol, symbol, testSetup(), 2000, 1.8, openedAt)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return trade
}

// quiet is a bar that touches neither stop nor target.
func quiet(ts time.Time) models.Candle {
	return models.Candle{Timestamp: ts, Open: 2000, High: 2000.5, Low: 1999.5, Close: 2000.1}
}

func TestLifecycle_OpenBuildsTrade(t *testing.T) {
	l := newTestLifecycle(t)
	trade := openTest(t, l, "XAUUSD")

	if trade.Side != models.OrderSideSell {
		t.Errorf("expected SELL, got %s", trade.Side)
	}
	if !(trade.StopLoss > trade.EntryPrice && trade.EntryPrice > trade.TakeProfit) {
		t.Errorf("levels out of order: %+v", trade)
	}
	if trade.RiskDistance != 1 {
		t.Errorf("expected risk 1, got %v", trade.RiskDistance)
	}
	if !l.HasOpenTrade("XAUUSD") {
		t.Error("expected open trade")
	}
}

func TestLifecycle_SecondOpenIsRejected(t *testing.T) {
	l := newTestLifecycle(t)
	first := openTest(t, l, "XAUUSD")

	_, err := l.Open("other", "XAUUSD", testSetup(), 2000, 1.8, openedAt.Add(time.Minute))
	if !errors.Is(err, apperrors.ErrTradeAlreadyOpen) {
		t.Fatalf("expected ErrTradeAlreadyOpen, got %v", err)
	}
	if got, _ := l.OpenTrade("XAUUSD"); got.ID != first.ID {
		t.Errorf("open trade was replaced: %s", got.ID)
	}
}

func TestLifecycle_InvalidLevelsAreRejected(t *testing.T) {
	l := newTestLifecycle(t)
	_, err := l.Open("id", "XAUUSD", testSetup(), 2001.5, 1.8, openedAt)
	if !errors.Is(err, apperrors.ErrInvalidTrade) {
		t.Fatalf("expected ErrInvalidTrade, got %v", err)
	}
	if l.HasOpenTrade("XAUUSD") {
		t.Error("invalid trade must not be opened")
	}
}

func TestLifecycle_StopTouchedOnThirdCandle(t *testing.T) {
	l := newTestLifecycle(t)
	openTest(t, l, "XAUUSD")
	stats := NewStats(1.8)

	var outcome *models.TradeOutcome
	for i := 1; i <= 3; i++ {
		c := quiet(openedAt.Add(time.Duration(i) * time.Minute))
		if i == 3 {
			c.High = 2001.2
		}
		outcome = l.Resolve("XAUUSD", c)
		if i < 3 && outcome != nil {
			t.Fatalf("trade closed early on candle %d: %+v", i, outcome)
		}
	}

	if outcome == nil || outcome.Result != models.ResultLoss {
		t.Fatalf("expected loss, got %+v", outcome)
	}
	if outcome.RealizedR != -1 || outcome.ClosePrice != 2001 {
		t.Errorf("unexpected outcome: R=%v close=%v", outcome.RealizedR, outcome.ClosePrice)
	}

	before := stats.Report().Global
	stats.Record(*outcome)
	after := stats.Report().Global
	if after.Losses-before.Losses != 1 || after.TotalR-before.TotalR != -1 {
		t.Errorf("expected exactly one loss and -1R, got %+v -> %+v", before, after)
	}
	if l.HasOpenTrade("XAUUSD") {
		t.Error("trade should be cleared")
	}
}

func TestLifecycle_TargetTouched(t *testing.T) {
	l := newTestLifecycle(t)
	openTest(t, l, "XAUUSD")

	c := quiet(openedAt.Add(time.Minute))
	c.Low = 1998
	outcome := l.Resolve("XAUUSD", c)
	if outcome == nil || outcome.Result != models.ResultWin {
		t.Fatalf("expected win, got %+v", outcome)
	}
	if outcome.RealizedR != 1.8 || outcome.ClosePrice != 1998.2 {
		t.Errorf("unexpected outcome: R=%v close=%v", outcome.RealizedR, outcome.ClosePrice)
	}
}

func TestLifecycle_StraddlingBarIsLoss(t *testing.T) {
	l := newTestLifecycle(t)
	openTest(t, l, "XAUUSD")

	c := models.Candle{Timestamp: openedAt.Add(time.Minute), Open: 2000, High: 2002, Low: 1997, Close: 1997.5}
	outcome := l.Resolve("XAUUSD", c)
	if outcome == nil || outcome.Result != models.ResultLoss {
		t.Fatalf("expected loss on straddling bar, got %+v", outcome)
	}
}

func TestLifecycle_ExpiresAtTwentyFirstCandle(t *testing.T) {
	l := newTestLifecycle(t)
	openTest(t, l, "XAUUSD")

	// Candles stamped from the opening minute: the 21st is 20 minutes in.
	for i := 0; i < 21; i++ {
		c := quiet(openedAt.Add(time.Duration(i) * time.Minute))
		outcome := l.Resolve("XAUUSD", c)
		if i < 20 {
			if outcome != nil {
				t.Fatalf("trade closed early at candle %d: %+v", i+1, outcome)
			}
			continue
		}
		if outcome == nil || outcome.Result != models.ResultExpired {
			t.Fatalf("expected expiry at candle 21, got %+v", outcome)
		}
		if outcome.RealizedR != -0.15 || outcome.ClosePrice != c.Close {
			t.Errorf("unexpected outcome: R=%v close=%v", outcome.RealizedR, outcome.ClosePrice)
		}
	}
}

func TestLifecycle_ResolveWithoutTrade(t *testing.T) {
	l := newTestLifecycle(t)
	if got := l.Resolve("XAUUSD", quiet(openedAt)); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestNewLifecycle_RejectsNonPositiveHold(t *testing.T) {
	if _, err := NewLifecycle(LifecycleConfig{MaxHold: 0}); !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestProperty_AtMostOneOpenTradePerSymbol(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	symbols := []string{"XAUUSD", "EURUSD", "US30"}

	properties.Property("open and resolve interleavings never hold two trades for a symbol", prop.ForAll(
		func(ops []int) bool {
			l, _ := NewLifecycle(DefaultLifecycleConfig())
			ts := openedAt
			opened := map[string]int{}
			closed := map[string]int{}
			for i, op := range ops {
				sym := symbols[op%len(symbols)]
				ts = ts.Add(time.Minute)
				if op%2 == 0 {
					_, err := l.Open(fmt.Sprintf("t%d", i), sym, testSetup(), 2000, 1.8, ts)
					if err == nil {
						opened[sym]++
					} else if !errors.Is(err, apperrors.ErrTradeAlreadyOpen) {
						return false
					}
				} else {
					c := quiet(ts)
					if op%3 == 0 {
						c.High = 2002
					}
					if l.Resolve(sym, c) != nil {
						closed[sym]++
					}
				}
				for _, s := range symbols {
					diff := opened[s] - closed[s]
					if diff < 0 || diff > 1 || (diff == 1) != l.HasOpenTrade(s) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 59)),
	))

	properties.TestingRun(t)
}

func TestRestore(t *testing.T) {
	l, err := NewLifecycle(DefaultLifecycleConfig())
	if err != nil {
		t.Fatal(err)
	}
	trade := models.Trade{
		ID: "r1", Symbol: "XAUUSD", Side: models.OrderSideSell,
		EntryPrice: 2000, StopLoss: 2001, TakeProfit: 1998.2, RiskDistance: 1, RewardRiskRatio: 1.8,
		OpenedAt: time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC),
	}
	if err := l.Restore(trade); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if err := l.Restore(trade); !errors.Is(err, apperrors.ErrTradeAlreadyOpen) {
		t.Errorf("expected ErrTradeAlreadyOpen, got %v", err)
	}

	bad := trade
	bad.Symbol, bad.StopLoss = "EURUSD", 1999
	if err := l.Restore(bad); !errors.Is(err, apperrors.ErrInvalidTrade) {
		t.Errorf("expected ErrInvalidTrade, got %v", err)
	}

	out := l.Resolve("XAUUSD", models.Candle{Timestamp: trade.OpenedAt.Add(time.Minute), High: 2001.5, Low: 1999.5})
	if out == nil || out.Result != models.ResultLoss {
		t.Errorf("restored trade did not resolve: %+v", out)
	}
}

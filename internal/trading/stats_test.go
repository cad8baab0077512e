package trading

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/umair24171/scalp-agent/internal/models"
)

func outcome(symbol string, result models.TradeResult, r float64) models.TradeOutcome {
	return models.TradeOutcome{
		Trade:     models.Trade{Symbol: symbol, RewardRiskRatio: 1.8},
		Result:    result,
		RealizedR: r,
	}
}

func TestStats_RecordAndReport(t *testing.T) {
	s := NewStats(1.8)
	s.Record(outcome("XAUUSD", models.ResultWin, 1.8))
	s.Record(outcome("XAUUSD", models.ResultLoss, -1))
	s.Record(outcome("EURUSD", models.ResultWin, 1.8))
	s.Record(outcome("EURUSD", models.ResultExpired, -0.15))

	r := s.Report()
	if r.Global.Wins != 2 || r.Global.Losses != 1 || r.Global.Expired != 1 {
		t.Errorf("unexpected global counters: %+v", r.Global)
	}
	if math.Abs(r.Global.TotalR-2.45) > 1e-9 {
		t.Errorf("expected total R 2.45, got %v", r.Global.TotalR)
	}
	if math.Abs(r.WinRate-2.0/3.0) > 1e-9 {
		t.Errorf("expected win rate 2/3, got %v", r.WinRate)
	}
	if r.ProfitFactor.Kind != ProfitFactorFinite || math.Abs(r.ProfitFactor.Value-3.6) > 1e-9 {
		t.Errorf("expected profit factor 3.6, got %+v", r.ProfitFactor)
	}

	eur := r.PerSymbol["EURUSD"]
	if eur.Wins != 1 || eur.Losses != 0 || eur.Expired != 1 {
		t.Errorf("unexpected EURUSD counters: %+v", eur)
	}
	if got := r.Symbols(); len(got) != 2 || got[0] != "EURUSD" {
		t.Errorf("unexpected symbols: %v", got)
	}
}

func TestStats_EmptyAndNoLossSentinels(t *testing.T) {
	s := NewStats(1.8)
	r := s.Report()
	if r.WinRate != 0 {
		t.Errorf("expected zero win rate, got %v", r.WinRate)
	}
	if r.ProfitFactor.Kind != ProfitFactorUndefined {
		t.Errorf("expected undefined profit factor, got %+v", r.ProfitFactor)
	}

	s.Record(outcome("XAUUSD", models.ResultWin, 1.8))
	r = s.Report()
	if r.ProfitFactor.Kind != ProfitFactorInfinite || r.ProfitFactor.String() != "∞" {
		t.Errorf("expected infinite profit factor, got %+v", r.ProfitFactor)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if decoded["profit_factor"] != "infinite" {
		t.Errorf("expected infinite sentinel in JSON, got %v", decoded["profit_factor"])
	}
}

func TestStats_ReportIsACopy(t *testing.T) {
	s := NewStats(1.8)
	s.Record(outcome("XAUUSD", models.ResultLoss, -1))
	r := s.Report()
	r.PerSymbol["XAUUSD"] = Counters{Wins: 99}

	if s.Report().PerSymbol["XAUUSD"].Wins != 0 {
		t.Error("report mutation leaked into aggregator")
	}
}

func TestProperty_ProfitFactorNeverNaN(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	results := []models.TradeResult{models.ResultWin, models.ResultLoss, models.ResultExpired}

	properties.Property("profit factor and win rate are always finite", prop.ForAll(
		func(picks []int) bool {
			s := NewStats(1.8)
			for _, p := range picks {
				res := results[p%len(results)]
				r := map[models.TradeResult]float64{models.ResultWin: 1.8, models.ResultLoss: -1, models.ResultExpired: -0.15}[res]
				s.Record(outcome("XAUUSD", res, r))
			}
			rep := s.Report()
			pf := rep.ProfitFactor
			if math.IsNaN(pf.Value) || math.IsInf(pf.Value, 0) || math.IsNaN(rep.WinRate) {
				return false
			}
			if rep.Global.Losses == 0 && pf.Kind == ProfitFactorFinite {
				return false
			}
			_, err := json.Marshal(rep)
			return err == nil
		},
		gen.SliceOf(gen.IntRange(0, 8)),
	))

	properties.TestingRun(t)
}

package trading

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/umair24171/scalp-agent/internal/models"
)

// Counters are running totals for a set of outcomes.
type Counters struct {
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Expired int     `json:"expired"`
	TotalR  float64 `json:"total_r"`
}

// Closed returns the number of trades closed by stop or target.
func (c Counters) Closed() int {
	return c.Wins + c.Losses
}

// WinRate returns wins/(wins+losses), or 0 when nothing closed.
func (c Counters) WinRate() float64 {
	if c.Closed() == 0 {
		return 0
	}
	return float64(c.Wins) / float64(c.Closed())
}

// ProfitFactor returns (wins×rewardRisk)/losses.
func (c Counters) ProfitFactor(rewardRisk float64) ProfitFactor {
	switch {
	case c.Losses > 0:
		return ProfitFactor{Kind: ProfitFactorFinite, Value: float64(c.Wins) * rewardRisk / float64(c.Losses)}
	case c.Wins > 0:
		return ProfitFactor{Kind: ProfitFactorInfinite}
	default:
		return ProfitFactor{Kind: ProfitFactorUndefined}
	}
}

// ProfitFactorKind distinguishes a computed ratio from the no-loss sentinels.
type ProfitFactorKind string

const (
	ProfitFactorFinite    ProfitFactorKind = "finite"
	ProfitFactorInfinite  ProfitFactorKind = "infinite"  // wins and no losses
	ProfitFactorUndefined ProfitFactorKind = "undefined" // nothing closed
)

// ProfitFactor is a profit factor that never carries NaN or Inf.
type ProfitFactor struct {
	Kind  ProfitFactorKind
	Value float64 // meaningful only for ProfitFactorFinite
}

func (p ProfitFactor) String() string {
	switch p.Kind {
	case ProfitFactorFinite:
		return fmt.Sprintf("%.2f", p.Value)
	case ProfitFactorInfinite:
		return "∞"
	default:
		return "n/a"
	}
}

// MarshalJSON encodes finite values as numbers and sentinels as strings.
func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	if p.Kind == ProfitFactorFinite {
		return json.Marshal(p.Value)
	}
	return json.Marshal(string(p.Kind))
}

// StatsReport is a point-in-time view of the aggregator.
type StatsReport struct {
	Global       Counters            `json:"global"`
	PerSymbol    map[string]Counters `json:"per_symbol"`
	WinRate      float64             `json:"win_rate"`
	ProfitFactor ProfitFactor        `json:"profit_factor"`
}

// Symbols returns the report's symbols, sorted.
func (r StatsReport) Symbols() []string {
	symbols := make([]string, 0, len(r.PerSymbol))
	for s := range r.PerSymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Stats aggregates trade outcomes globally and per symbol.
type Stats struct {
	rewardRisk float64
	global     Counters
	perSymbol  map[string]*Counters
}

// NewStats creates an aggregator. rewardRisk is used for the profit factor.
func NewStats(rewardRisk float64) *Stats {
	return &Stats{
		rewardRisk: rewardRisk,
		perSymbol:  make(map[string]*Counters),
	}
}

// Record adds an outcome to the global and per-symbol totals.
func (s *Stats) Record(o models.TradeOutcome) {
	sym, ok := s.perSymbol[o.Trade.Symbol]
	if !ok {
		sym = &Counters{}
		s.perSymbol[o.Trade.Symbol] = sym
	}
	for _, c := range []*Counters{&s.global, sym} {
		switch o.Result {
		case models.ResultWin:
			c.Wins++
		case models.ResultLoss:
			c.Losses++
		case models.ResultExpired:
			c.Expired++
		}
		c.TotalR += o.RealizedR
	}
}

// Report returns a copy of the current totals.
func (s *Stats) Report() StatsReport {
	per := make(map[string]Counters, len(s.perSymbol))
	for sym, c := range s.perSymbol {
		per[sym] = *c
	}
	return StatsReport{
		Global:       s.global,
		PerSymbol:    per,
		WinRate:      s.global.WinRate(),
		ProfitFactor: s.global.ProfitFactor(s.rewardRisk),
	}
}

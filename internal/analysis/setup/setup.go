// Package setup detects pullback-rejection short setups on 1-minute candles
// and scores their confidence.
package setup

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/umair24171/scalp-agent/internal/analysis/indicators"
	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
)

// Config holds setup detector parameters.
type Config struct {
	MinBars int

	FastEMA    int
	SlowEMA    int
	RSIPeriod  int
	ATRPeriod  int
	StochK     int
	StochD     int
	MACDFast   int
	MACDSlow   int
	MACDSignal int

	MinATR           float64
	PullbackLookback int
	PullbackBandATR  float64 // tap high must sit within EMA21 + band*ATR
	TapToleranceATR  float64 // and within tolerance*ATR of EMA21
	MinRSI           float64
	MinStochK        float64

	BaseConfidence float64
	MaxConfidence  float64
	MinConfidence  float64

	StopATRMultiplier float64
	MaxRiskATR        float64
	RewardRisk        float64
}

// DefaultConfig returns the parameters the engine trades with.
func DefaultConfig() Config {
	return Config{
		MinBars:           30,
		FastEMA:           8,
		SlowEMA:           21,
		RSIPeriod:         7,
		ATRPeriod:         7,
		StochK:            5,
		StochD:            3,
		MACDFast:          5,
		MACDSlow:          13,
		MACDSignal:        4,
		MinATR:            0.3,
		PullbackLookback:  7,
		PullbackBandATR:   1.0,
		TapToleranceATR:   0.4,
		MinRSI:            35,
		MinStochK:         25,
		BaseConfidence:    50,
		MaxConfidence:     95,
		MinConfidence:     65,
		StopATRMultiplier: 1.0,
		MaxRiskATR:        3.0,
		RewardRisk:        1.8,
	}
}

// Rejection explains why no setup was produced.
type Rejection struct {
	Rule   string
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return r.Rule
	}
	return fmt.Sprintf("%s: %s", r.Rule, r.Detail)
}

// Detector evaluates 1-minute candles for a qualifying short setup.
type Detector struct {
	cfg    Config
	calc   indicators.Calculator
	rules  []Rule
	logger zerolog.Logger
}

// NewDetector creates a setup detector using the default rule set.
func NewDetector(cfg Config, calc indicators.Calculator, logger zerolog.Logger) *Detector {
	return &Detector{
		cfg:    cfg,
		calc:   calc,
		rules:  DefaultRules(),
		logger: logger.With().Str("component", "setup").Logger(),
	}
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect evaluates candles and returns a setup priced at price. A nil setup
// comes with a *Rejection or an error wrapping ErrInsufficientData.
func (d *Detector) Detect(symbol string, candles []models.Candle, price float64) (*models.Setup, error) {
	snap, err := d.Snapshot(candles)
	if err != nil {
		d.logger.Debug().Str("symbol", symbol).Err(err).Msg("Setup snapshot unavailable")
		return nil, err
	}
	if price <= 0 {
		price = snap.Close
	}

	for _, rule := range d.rules {
		if ok, detail := rule.Check(snap, d.cfg); !ok {
			d.logger.Debug().Str("symbol", symbol).Str("rule", rule.Name).Str("detail", detail).Msg("Setup rejected")
			return nil, &Rejection{Rule: rule.Name, Detail: detail}
		}
	}

	confidence, rationale := Score(snap, d.cfg)
	if confidence < d.cfg.MinConfidence {
		return nil, &Rejection{
			Rule:   "min_confidence",
			Detail: fmt.Sprintf("score %.0f below %.0f", confidence, d.cfg.MinConfidence),
		}
	}

	stop := price + snap.ATR*d.cfg.StopATRMultiplier
	risk := math.Abs(price - stop)
	if risk == 0 || risk > d.cfg.MaxRiskATR*snap.ATR {
		return nil, &Rejection{
			Rule:   "risk_distance",
			Detail: fmt.Sprintf("risk %.5f outside (0, %.1f×ATR]", risk, d.cfg.MaxRiskATR),
		}
	}

	return &models.Setup{
		Price:        price,
		StopLoss:     stop,
		TakeProfit:   price - risk*d.cfg.RewardRisk,
		RiskDistance: risk,
		ATR:          snap.ATR,
		Confidence:   confidence,
		Snapshot:     snap,
		Rationale:    rationale,
	}, nil
}

// Snapshot computes the indicator values the rules read. Any indicator
// failure, including missing warm-up, is reported as ErrInsufficientData.
func (d *Detector) Snapshot(candles []models.Candle) (models.Snapshot, error) {
	cfg := d.cfg
	if len(candles) < cfg.MinBars || len(candles) < cfg.PullbackLookback+1 {
		return models.Snapshot{}, errors.Wrapf(errors.ErrInsufficientData, "%d candles, need %d", len(candles), cfg.MinBars)
	}

	fast, err := d.calc.EMA(candles, cfg.FastEMA)
	if err != nil || !fast.HasHistory(2) {
		return models.Snapshot{}, unavailable("fast EMA", err)
	}
	slow, err := d.calc.EMA(candles, cfg.SlowEMA)
	if err != nil || !slow.HasHistory(2) {
		return models.Snapshot{}, unavailable("slow EMA", err)
	}
	rsi, err := d.calc.RSI(candles, cfg.RSIPeriod)
	if err != nil || !rsi.HasHistory(2) {
		return models.Snapshot{}, unavailable("RSI", err)
	}
	atr, err := d.calc.ATR(candles, cfg.ATRPeriod)
	if err != nil || !atr.HasHistory(1) {
		return models.Snapshot{}, unavailable("ATR", err)
	}
	stoch, err := d.calc.Stochastic(candles, cfg.StochK, cfg.StochD)
	if err != nil || !stoch.K.HasHistory(2) || !stoch.D.HasHistory(2) {
		return models.Snapshot{}, unavailable("stochastic", err)
	}
	macd, err := d.calc.MACD(candles, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	if err != nil || !macd.Histogram.HasHistory(2) {
		return models.Snapshot{}, unavailable("MACD", err)
	}

	n := len(candles)
	pullbackHigh := candles[n-1-cfg.PullbackLookback].High
	for _, c := range candles[n-1-cfg.PullbackLookback : n-1] {
		pullbackHigh = math.Max(pullbackHigh, c.High)
	}

	return models.Snapshot{
		Close:        candles[n-1].Close,
		PrevClose:    candles[n-2].Close,
		EMA8:         fast.Last(),
		PrevEMA8:     fast.Prev(),
		EMA21:        slow.Last(),
		PrevEMA21:    slow.Prev(),
		RSI:          rsi.Last(),
		PrevRSI:      rsi.Prev(),
		ATR:          atr.Last(),
		StochK:       stoch.K.Last(),
		StochD:       stoch.D.Last(),
		PrevStochK:   stoch.K.Prev(),
		PrevStochD:   stoch.D.Prev(),
		MACDHist:     macd.Histogram.Last(),
		PrevMACDHist: macd.Histogram.Prev(),
		PullbackHigh: pullbackHigh,
	}, nil
}

func unavailable(what string, err error) error {
	switch {
	case err == nil:
		return errors.Wrapf(errors.ErrInsufficientData, "%s warm-up incomplete", what)
	case errors.Is(err, errors.ErrInsufficientData):
		return errors.Wrap(err, what)
	}
	return errors.Wrapf(errors.ErrInsufficientData, "%s: %v", what, err)
}

// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/umair24171/scalp-agent/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol string, res models.Resolution, candles []models.Candle) error
	GetCandles(ctx context.Context, filter CandleFilter) ([]models.Candle, error)

	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	// Outcomes
	SaveOutcome(ctx context.Context, outcome *models.TradeOutcome) error
	GetOutcomes(ctx context.Context, filter TradeFilter) ([]models.TradeOutcome, error)

	// Execution reports
	SaveExecutionReport(ctx context.Context, report *models.ExecutionReport) error
	GetExecutionReports(ctx context.Context, tradeID string) ([]models.ExecutionReport, error)

	// Sync markers
	GetLastSync(key string) time.Time
	SetLastSync(key string, t time.Time) error

	// Lifecycle
	Close() error
}

// CandleFilter selects the most recent candles of one series.
type CandleFilter struct {
	Symbol     string
	Resolution models.Resolution
	// Until excludes candles after this time when set.
	Until time.Time
	// Limit caps the result to the newest N candles when positive.
	Limit int
}

// TradeStatus is the persisted state of a trade.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "OPEN"
	TradeStatusClosed TradeStatus = "CLOSED"
)

// TradeFilter represents filters for querying trades and outcomes.
type TradeFilter struct {
	Symbol    string
	Status    TradeStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// ResolveKey is the sync marker holding the newest 1-minute bar already
// checked against the symbol's open trade.
func ResolveKey(symbol string) string {
	return "resolve:" + symbol
}

// Package feed supplies closed candles to the runner.
package feed

import (
	"context"
	"time"

	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
	"github.com/umair24171/scalp-agent/internal/store"
)

// Feed returns the newest closed candles of one series, oldest first.
// A zero until means no upper bound.
type Feed interface {
	Candles(ctx context.Context, symbol string, res models.Resolution, until time.Time, limit int) ([]models.Candle, error)
}

// StoreFeed reads candles previously persisted by an importer or collector.
type StoreFeed struct {
	store store.DataStore
}

// NewStoreFeed creates a feed backed by the data store.
func NewStoreFeed(s store.DataStore) *StoreFeed {
	return &StoreFeed{store: s}
}

// Candles implements Feed. Only bars that have fully closed by until are
// returned, so a bar still forming at the tick time is never evaluated.
func (f *StoreFeed) Candles(ctx context.Context, symbol string, res models.Resolution, until time.Time, limit int) ([]models.Candle, error) {
	filter := store.CandleFilter{Symbol: symbol, Resolution: res, Limit: limit}
	if !until.IsZero() {
		filter.Until = until.Add(-res.Duration())
	}

	candles, err := f.store.GetCandles(ctx, filter)
	if err != nil {
		return nil, errors.NewDataError(string(res), symbol, "reading stored candles", err)
	}
	if len(candles) == 0 {
		return nil, errors.NewDataError(string(res), symbol, "no stored candles", errors.ErrDataNotFound)
	}
	return candles, nil
}

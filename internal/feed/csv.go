package feed

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
	"github.com/umair24171/scalp-agent/internal/store"
)

// csvRow is one line of a timestamp,open,high,low,close,volume file.
type csvRow struct {
	Timestamp string  `csv:"timestamp"`
	Open      float64 `csv:"open"`
	High      float64 `csv:"high"`
	Low       float64 `csv:"low"`
	Close     float64 `csv:"close"`
	Volume    int64   `csv:"volume"`
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006.01.02 15:04",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts RFC3339, common broker export layouts (read as UTC)
// and Unix seconds.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// CSVImporter loads candle files into the data store.
type CSVImporter struct {
	store  store.DataStore
	logger zerolog.Logger
}

// NewCSVImporter creates an importer.
func NewCSVImporter(s store.DataStore, logger zerolog.Logger) *CSVImporter {
	return &CSVImporter{
		store:  s,
		logger: logger.With().Str("component", "csv_importer").Logger(),
	}
}

// ImportFile imports the candles in path. See Import.
func (i *CSVImporter) ImportFile(ctx context.Context, symbol string, res models.Resolution, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return i.Import(ctx, symbol, res, f)
}

// Import parses candles from r, validates them and upserts them into the
// store. Rows are sorted by time and later duplicates win. It returns the
// number of candles stored.
func (i *CSVImporter) Import(ctx context.Context, symbol string, res models.Resolution, r io.Reader) (int, error) {
	if !res.Valid() {
		return 0, errors.NewValidationError("resolution", res, "must be one of 1m, 5m, 1h")
	}

	candles, err := ParseCSV(r, res)
	if err != nil {
		return 0, errors.NewDataError(string(res), symbol, "parsing csv", err)
	}
	if err := i.store.SaveCandles(ctx, symbol, res, candles); err != nil {
		return 0, err
	}

	if len(candles) > 0 {
		i.logger.Info().
			Str("symbol", symbol).
			Str("resolution", string(res)).
			Int("candles", len(candles)).
			Time("from", candles[0].Timestamp).
			Time("to", candles[len(candles)-1].Timestamp).
			Msg("Candles imported")
	}
	return len(candles), nil
}

// ParseCSV decodes and validates candles of resolution res.
func ParseCSV(r io.Reader, res models.Resolution) ([]models.Candle, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}

	byTime := make(map[time.Time]models.Candle, len(rows))
	for n, row := range rows {
		line := n + 2 // header is line 1
		ts, err := ParseTimestamp(row.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !ts.Truncate(res.Duration()).Equal(ts) {
			return nil, fmt.Errorf("line %d: %s is not aligned to %s", line, ts.Format(time.RFC3339), res)
		}
		c := models.Candle{Timestamp: ts, Open: row.Open, High: row.High, Low: row.Low, Close: row.Close, Volume: row.Volume}
		if err := validateCandle(c); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		byTime[ts] = c
	}

	candles := make([]models.Candle, 0, len(byTime))
	for _, c := range byTime {
		candles = append(candles, c)
	}
	sort.Slice(candles, func(a, b int) bool {
		return candles[a].Timestamp.Before(candles[b].Timestamp)
	})
	return candles, nil
}

func validateCandle(c models.Candle) error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("non-positive or non-finite price %v", v)
		}
	}
	if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
		return fmt.Errorf("high %.5f / low %.5f do not bracket open %.5f and close %.5f", c.High, c.Low, c.Open, c.Close)
	}
	if c.Volume < 0 {
		return fmt.Errorf("negative volume %d", c.Volume)
	}
	return nil
}

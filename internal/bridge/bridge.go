// Package bridge hands emitted trades to an external execution venue and
// collects its fill and close reports.
//
// The venue is the source of truth for what was executed; reports are
// bookkeeping and never drive trade resolution.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
	"github.com/umair24171/scalp-agent/pkg/utils"
)

// Bridge is the execution hand-off used by the runner.
type Bridge interface {
	Submit(ctx context.Context, trade models.Trade) error
	PollReports(ctx context.Context, handle func(models.ExecutionReport) error) (int, error)
}

// Order is the file format written for the venue.
type Order struct {
	TradeID    string          `json:"trade_id"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Entry      decimal.Decimal `json:"entry"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"`
	Confidence float64         `json:"confidence"`
	OpenedAt   time.Time       `json:"opened_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Rationale  []string        `json:"rationale,omitempty"`
}

// NewOrder builds the order for trade with prices rounded to digits.
func NewOrder(trade models.Trade, digits int32, maxHold time.Duration) Order {
	return Order{
		TradeID:    trade.ID,
		Symbol:     trade.Symbol,
		Side:       string(trade.Side),
		Entry:      utils.RoundPrice(trade.EntryPrice, digits),
		StopLoss:   utils.RoundPrice(trade.StopLoss, digits),
		TakeProfit: utils.RoundPrice(trade.TakeProfit, digits),
		Confidence: trade.Confidence,
		OpenedAt:   trade.OpenedAt.UTC(),
		ExpiresAt:  trade.OpenedAt.Add(maxHold).UTC(),
		Rationale:  trade.Rationale,
	}
}

// Config configures a FileBridge.
type Config struct {
	Dir     string
	Digits  int32
	MaxHold time.Duration
	Retry   utils.RetryConfig
}

// FileBridge exchanges JSON files with the venue through a shared directory:
// orders go to <dir>/outbox, reports arrive in <dir>/inbox and are moved to
// <dir>/inbox/archive once stored (or <dir>/inbox/rejected if unreadable).
type FileBridge struct {
	cfg    Config
	logger zerolog.Logger
}

// NewFileBridge creates the exchange directories and returns a bridge.
func NewFileBridge(cfg Config, logger zerolog.Logger) (*FileBridge, error) {
	if cfg.Dir == "" {
		return nil, errors.NewValidationError("bridge.dir", cfg.Dir, "must not be empty")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = utils.DefaultRetryConfig()
	}

	b := &FileBridge{
		cfg:    cfg,
		logger: logger.With().Str("component", "bridge").Logger(),
	}
	for _, dir := range []string{b.outbox(), b.inbox(), b.archive(), b.rejected()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrBridgeUnavailable, err.Error())
		}
	}
	return b, nil
}

func (b *FileBridge) outbox() string   { return filepath.Join(b.cfg.Dir, "outbox") }
func (b *FileBridge) inbox() string    { return filepath.Join(b.cfg.Dir, "inbox") }
func (b *FileBridge) archive() string  { return filepath.Join(b.inbox(), "archive") }
func (b *FileBridge) rejected() string { return filepath.Join(b.inbox(), "rejected") }

// OrderPath returns where the order for trade is written.
func (b *FileBridge) OrderPath(trade models.Trade) string {
	name := fmt.Sprintf("%s_%s_%s.json", trade.OpenedAt.UTC().Format("20060102T150405"), trade.Symbol, trade.ID)
	return filepath.Join(b.outbox(), name)
}

// Submit writes the trade's order file. The file appears atomically so the
// venue never reads a partial order.
func (b *FileBridge) Submit(ctx context.Context, trade models.Trade) error {
	data, err := json.MarshalIndent(NewOrder(trade, b.cfg.Digits, b.cfg.MaxHold), "", "  ")
	if err != nil {
		return errors.NewBridgeError(trade.ID, "encode", err)
	}

	path := b.OrderPath(trade)
	err = utils.Retry(ctx, b.cfg.Retry, func() error {
		return writeAtomic(path, data)
	})
	if err != nil {
		return errors.NewBridgeError(trade.ID, "submit", errors.Wrap(errors.ErrBridgeUnavailable, err.Error()))
	}

	b.logger.Info().
		Str("trade_id", trade.ID).
		Str("symbol", trade.Symbol).
		Str("path", path).
		Msg("Order submitted")
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".order-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// PollReports hands every report waiting in the inbox to handle, oldest
// first. A report is archived only once handle accepts it; when handle fails
// the poll stops and that report and any later ones stay queued. It returns
// the number of reports handled.
func (b *FileBridge) PollReports(ctx context.Context, handle func(models.ExecutionReport) error) (int, error) {
	entries, err := os.ReadDir(b.inbox())
	if err != nil {
		return 0, errors.Wrap(errors.ErrBridgeUnavailable, err.Error())
	}

	type queued struct {
		name   string
		report models.ExecutionReport
	}
	var pending []queued
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(b.inbox(), entry.Name())
		report, err := readReport(path)
		if err != nil {
			b.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Rejecting unreadable execution report")
			if err := os.Rename(path, filepath.Join(b.rejected(), entry.Name())); err != nil {
				return 0, errors.NewBridgeError("", "reject", err)
			}
			continue
		}
		pending = append(pending, queued{name: entry.Name(), report: report})
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].report.ReportedAt.Before(pending[j].report.ReportedAt)
	})

	handled := 0
	for _, q := range pending {
		if ctx.Err() != nil {
			return handled, ctx.Err()
		}
		if err := handle(q.report); err != nil {
			return handled, fmt.Errorf("handling report %s: %w", q.name, err)
		}
		if err := os.Rename(filepath.Join(b.inbox(), q.name), filepath.Join(b.archive(), q.name)); err != nil {
			return handled, errors.NewBridgeError(q.report.TradeID, "archive", err)
		}
		handled++
	}
	return handled, nil
}

func readReport(path string) (models.ExecutionReport, error) {
	var r models.ExecutionReport
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, err
	}
	if r.TradeID == "" || r.Status == "" {
		return r, fmt.Errorf("report missing trade_id or status")
	}
	if r.ReportedAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			r.ReportedAt = info.ModTime().UTC()
		}
	}
	return r, nil
}

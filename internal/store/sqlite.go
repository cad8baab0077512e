// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Closed bars per symbol and resolution
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		resolution TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, resolution, timestamp)
	);

	-- Emitted short signals
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		risk_distance REAL NOT NULL,
		reward_risk REAL NOT NULL,
		confidence REAL NOT NULL,
		atr REAL NOT NULL,
		opened_at DATETIME NOT NULL,
		rationale TEXT,
		status TEXT NOT NULL DEFAULT 'OPEN',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Resolved trades
	CREATE TABLE IF NOT EXISTS outcomes (
		trade_id TEXT PRIMARY KEY,
		result TEXT NOT NULL,
		realized_r REAL NOT NULL,
		close_price REAL NOT NULL,
		closed_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (trade_id) REFERENCES trades(id)
	);

	-- Fill and close reports from the execution venue
	CREATE TABLE IF NOT EXISTS execution_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		status TEXT NOT NULL,
		fill_price REAL,
		close_price REAL,
		profit REAL,
		reported_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(trade_id, status, reported_at)
	);

	-- Sync status table
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_candles_series ON candles(symbol, resolution, timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_opened_at ON trades(opened_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_closed_at ON outcomes(closed_at);
	CREATE INDEX IF NOT EXISTS idx_reports_trade ON execution_reports(trade_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Candles Methods
// ============================================================================

// SaveCandles upserts candles for one series. Timestamps are stored in UTC so
// that lexical and chronological order agree.
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol string, res models.Resolution, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("begin transaction: %v", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, resolution, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("prepare statement: %v", err))
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, symbol, string(res), c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("insert candle: %v", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("commit: %v", err))
	}

	return nil
}

// GetCandles returns the newest candles matching filter in ascending order.
func (s *SQLiteStore) GetCandles(ctx context.Context, filter CandleFilter) ([]models.Candle, error) {
	query := `SELECT timestamp, open, high, low, close, volume FROM candles WHERE symbol = ? AND resolution = ?`
	args := []interface{}{filter.Symbol, string(filter.Resolution)}

	if !filter.Until.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.Until.UTC())
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("query candles: %v", err))
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("scan candle: %v", err))
		}
		c.Timestamp = c.Timestamp.UTC()
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("iterate candles: %v", err))
	}

	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// ============================================================================
// Trade Methods
// ============================================================================

// SaveTrade records an emitted trade as open.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *models.Trade) error {
	rationale, _ := json.Marshal(trade.Rationale)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, symbol, side, entry_price, stop_loss, take_profit, risk_distance, reward_risk, confidence, atr, opened_at, rationale, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, trade.Symbol, string(trade.Side), trade.EntryPrice, trade.StopLoss, trade.TakeProfit,
		trade.RiskDistance, trade.RewardRiskRatio, trade.Confidence, trade.ATRAtEntry,
		trade.OpenedAt.UTC(), string(rationale), string(TradeStatusOpen))
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("save trade %s: %v", trade.ID, err))
	}
	return nil
}

const tradeColumns = `t.id, t.symbol, t.side, t.entry_price, t.stop_loss, t.take_profit, t.risk_distance, t.reward_risk, t.confidence, t.atr, t.opened_at, t.rationale`

func scanTrade(scan func(dest ...interface{}) error, extra ...interface{}) (models.Trade, error) {
	var (
		t         models.Trade
		side      string
		rationale sql.NullString
	)
	dest := []interface{}{&t.ID, &t.Symbol, &side, &t.EntryPrice, &t.StopLoss, &t.TakeProfit,
		&t.RiskDistance, &t.RewardRiskRatio, &t.Confidence, &t.ATRAtEntry, &t.OpenedAt, &rationale}
	if err := scan(append(dest, extra...)...); err != nil {
		return t, err
	}
	t.Side = models.OrderSide(side)
	t.OpenedAt = t.OpenedAt.UTC()
	if rationale.Valid && rationale.String != "" {
		_ = json.Unmarshal([]byte(rationale.String), &t.Rationale)
	}
	return t, nil
}

// GetTrades retrieves trades from the database, oldest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades t WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND t.symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND t.status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.StartDate.IsZero() {
		query += " AND t.opened_at >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND t.opened_at <= ?"
		args = append(args, filter.EndDate.UTC())
	}
	query += " ORDER BY t.opened_at ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("query trades: %v", err))
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("scan trade: %v", err))
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ============================================================================
// Outcome Methods
// ============================================================================

// SaveOutcome records a resolved trade, marks the trade closed and moves the
// symbol's resolve marker to the closing bar, all in one transaction.
func (s *SQLiteStore) SaveOutcome(ctx context.Context, outcome *models.TradeOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("begin transaction: %v", err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO outcomes (trade_id, result, realized_r, close_price, closed_at)
		VALUES (?, ?, ?, ?, ?)
	`, outcome.Trade.ID, string(outcome.Result), outcome.RealizedR, outcome.ClosePrice, outcome.ClosedAt.UTC())
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("save outcome %s: %v", outcome.Trade.ID, err))
	}

	res, err := tx.ExecContext(ctx, `UPDATE trades SET status = ? WHERE id = ?`, string(TradeStatusClosed), outcome.Trade.ID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("close trade %s: %v", outcome.Trade.ID, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrDataNotFound, "trade %s", outcome.Trade.ID)
	}

	key := ResolveKey(outcome.Trade.Symbol)
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, key, outcome.ClosedAt.UTC(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("advance %s: %v", key, err))
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("commit: %v", err))
	}

	s.mu.Lock()
	s.syncTimes[key] = outcome.ClosedAt.UTC()
	s.mu.Unlock()
	return nil
}

// GetOutcomes returns resolved trades in closing order.
func (s *SQLiteStore) GetOutcomes(ctx context.Context, filter TradeFilter) ([]models.TradeOutcome, error) {
	query := "SELECT " + tradeColumns + `, o.result, o.realized_r, o.close_price, o.closed_at
		FROM outcomes o JOIN trades t ON t.id = o.trade_id WHERE 1=1`
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND t.symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND o.closed_at >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND o.closed_at <= ?"
		args = append(args, filter.EndDate.UTC())
	}
	query += " ORDER BY o.closed_at ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("query outcomes: %v", err))
	}
	defer rows.Close()

	var outcomes []models.TradeOutcome
	for rows.Next() {
		var (
			o      models.TradeOutcome
			result string
		)
		t, err := scanTrade(rows.Scan, &result, &o.RealizedR, &o.ClosePrice, &o.ClosedAt)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("scan outcome: %v", err))
		}
		o.Trade = t
		o.Result = models.TradeResult(result)
		o.ClosedAt = o.ClosedAt.UTC()
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// ============================================================================
// Execution Report Methods
// ============================================================================

// SaveExecutionReport stores a venue report.
func (s *SQLiteStore) SaveExecutionReport(ctx context.Context, report *models.ExecutionReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO execution_reports (trade_id, symbol, status, fill_price, close_price, profit, reported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, report.TradeID, report.Symbol, report.Status, report.FillPrice, report.ClosePrice, report.Profit, report.ReportedAt.UTC())
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("save execution report %s: %v", report.TradeID, err))
	}
	return nil
}

// GetExecutionReports returns the reports for a trade in arrival order.
func (s *SQLiteStore) GetExecutionReports(ctx context.Context, tradeID string) ([]models.ExecutionReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, symbol, status, fill_price, close_price, profit, reported_at
		FROM execution_reports WHERE trade_id = ? ORDER BY id ASC
	`, tradeID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("query execution reports: %v", err))
	}
	defer rows.Close()

	var reports []models.ExecutionReport
	for rows.Next() {
		var r models.ExecutionReport
		if err := rows.Scan(&r.TradeID, &r.Symbol, &r.Status, &r.FillPrice, &r.ClosePrice, &r.Profit, &r.ReportedAt); err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("scan execution report: %v", err))
		}
		r.ReportedAt = r.ReportedAt.UTC()
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a key.
func (s *SQLiteStore) GetLastSync(key string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[key]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, key).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}
	lastSync = lastSync.UTC()

	s.mu.Lock()
	s.syncTimes[key] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a key.
func (s *SQLiteStore) SetLastSync(key string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, key, t.UTC(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(errors.ErrDatabaseError, fmt.Sprintf("set last sync: %v", err))
	}

	s.mu.Lock()
	s.syncTimes[key] = t.UTC()
	s.mu.Unlock()

	return nil
}

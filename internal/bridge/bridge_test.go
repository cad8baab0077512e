package bridge

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
)

func newTestBridge(t *testing.T) *FileBridge {
	t.Helper()
	b, err := NewFileBridge(Config{Dir: t.TempDir(), Digits: 2, MaxHold: 20 * time.Minute}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileBridge() error: %v", err)
	}
	return b
}

func testTrade() models.Trade {
	return models.Trade{
		ID:           uuid.NewString(),
		Symbol:       "XAUUSD",
		Side:         models.OrderSideSell,
		EntryPrice:   2000.456,
		StopLoss:     2001.4561,
		TakeProfit:   1998.6551,
		RiskDistance: 1.0001,
		Confidence:   82,
		OpenedAt:     time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC),
	}
}

func TestSubmit_WritesRoundedOrder(t *testing.T) {
	b := newTestBridge(t)
	trade := testTrade()

	if err := b.Submit(context.Background(), trade); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	data, err := os.ReadFile(b.OrderPath(trade))
	if err != nil {
		t.Fatalf("order file not written: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["entry"] != "2000.46" || raw["stop_loss"] != "2001.46" || raw["take_profit"] != "1998.66" {
		t.Errorf("unexpected rounded prices: %v %v %v", raw["entry"], raw["stop_loss"], raw["take_profit"])
	}
	if raw["side"] != "SELL" || raw["trade_id"] != trade.ID {
		t.Errorf("unexpected order %v", raw)
	}
	if raw["expires_at"] != "2024-03-05T12:50:00Z" {
		t.Errorf("unexpected expiry %v", raw["expires_at"])
	}

	leftovers, _ := filepath.Glob(filepath.Join(b.outbox(), ".order-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestSubmit_UnavailableDirectory(t *testing.T) {
	b := newTestBridge(t)
	b.cfg.Retry.InitialDelay = time.Millisecond
	b.cfg.Retry.MaxDelay = time.Millisecond
	if err := os.RemoveAll(b.outbox()); err != nil {
		t.Fatal(err)
	}

	err := b.Submit(context.Background(), testTrade())
	if !errors.Is(err, errors.ErrBridgeUnavailable) {
		t.Fatalf("expected ErrBridgeUnavailable, got %v", err)
	}
	var be *errors.BridgeError
	if !errors.As(err, &be) || be.Op != "submit" {
		t.Errorf("expected submit BridgeError, got %v", err)
	}
}

func writeInbox(t *testing.T, b *FileBridge, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(b.inbox(), name), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestPollReports(t *testing.T) {
	b := newTestBridge(t)
	writeInbox(t, b, "b.json", `{"trade_id":"t1","symbol":"XAUUSD","status":"CLOSED","close_price":1998.66,"profit":12.5,"reported_at":"2024-03-05T12:40:00Z"}`)
	writeInbox(t, b, "a.json", `{"trade_id":"t1","symbol":"XAUUSD","status":"FILLED","fill_price":2000.47,"reported_at":"2024-03-05T12:30:02Z"}`)
	writeInbox(t, b, "broken.json", `{"trade_id":`)
	writeInbox(t, b, "notes.txt", `ignored`)

	var reports []models.ExecutionReport
	collect := func(r models.ExecutionReport) error {
		reports = append(reports, r)
		return nil
	}
	n, err := b.PollReports(context.Background(), collect)
	if err != nil {
		t.Fatalf("PollReports() error: %v", err)
	}
	if n != 2 {
		t.Errorf("handled = %d, want 2", n)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Status != "FILLED" || reports[1].Status != "CLOSED" {
		t.Errorf("expected reports in time order, got %+v", reports)
	}

	if _, err := os.Stat(filepath.Join(b.archive(), "a.json")); err != nil {
		t.Errorf("expected a.json archived: %v", err)
	}
	if _, err := os.Stat(filepath.Join(b.rejected(), "broken.json")); err != nil {
		t.Errorf("expected broken.json rejected: %v", err)
	}
	if _, err := os.Stat(filepath.Join(b.inbox(), "notes.txt")); err != nil {
		t.Errorf("non-json files must be left alone: %v", err)
	}

	again, err := b.PollReports(context.Background(), collect)
	if err != nil || again != 0 {
		t.Errorf("expected empty second poll, got %d (%v)", again, err)
	}
}

func TestPollReports_KeepsReportWhenHandlerFails(t *testing.T) {
	b := newTestBridge(t)
	writeInbox(t, b, "a.json", `{"trade_id":"t1","symbol":"XAUUSD","status":"FILLED","reported_at":"2024-03-05T12:30:02Z"}`)
	writeInbox(t, b, "b.json", `{"trade_id":"t1","symbol":"XAUUSD","status":"CLOSED","reported_at":"2024-03-05T12:40:00Z"}`)

	storeErr := stderrors.New("database is locked")
	n, err := b.PollReports(context.Background(), func(models.ExecutionReport) error { return storeErr })
	if !stderrors.Is(err, storeErr) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if n != 0 {
		t.Errorf("handled = %d, want 0", n)
	}
	for _, name := range []string{"a.json", "b.json"} {
		if _, err := os.Stat(filepath.Join(b.inbox(), name)); err != nil {
			t.Errorf("expected %s to stay in the inbox: %v", name, err)
		}
	}

	var statuses []string
	n, err = b.PollReports(context.Background(), func(r models.ExecutionReport) error {
		statuses = append(statuses, r.Status)
		return nil
	})
	if err != nil || n != 2 {
		t.Fatalf("retry poll = %d (%v), want 2", n, err)
	}
	if len(statuses) != 2 || statuses[0] != "FILLED" || statuses[1] != "CLOSED" {
		t.Errorf("unexpected retry order %v", statuses)
	}
	if _, err := os.Stat(filepath.Join(b.archive(), "a.json")); err != nil {
		t.Errorf("expected a.json archived after retry: %v", err)
	}
}

func TestNewFileBridge_RequiresDir(t *testing.T) {
	if _, err := NewFileBridge(Config{}, zerolog.Nop()); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("expected validation error, got %v", err)
	}
}

package bridge

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
)

type flakyBridge struct {
	err   error
	calls int
}

func (f *flakyBridge) Submit(ctx context.Context, trade models.Trade) error {
	f.calls++
	return f.err
}

func (f *flakyBridge) PollReports(ctx context.Context, handle func(models.ExecutionReport) error) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return 0, handle(models.ExecutionReport{TradeID: "t1", Status: "FILLED"})
}

func TestGuardedOpensAndRecovers(t *testing.T) {
	inner := &flakyBridge{err: stderrors.New("disk full")}
	g := NewGuarded(inner, BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute}, zerolog.Nop())
	clock := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return clock }

	ctx := context.Background()
	trade := models.Trade{ID: "t1"}

	for i := 0; i < 2; i++ {
		if err := g.Submit(ctx, trade); err == nil {
			t.Fatal("expected inner failure")
		}
	}
	if g.State() != BreakerOpen {
		t.Fatalf("state = %s, want OPEN", g.State())
	}

	err := g.Submit(ctx, trade)
	if !errors.Is(err, errors.ErrBridgeUnavailable) {
		t.Fatalf("expected ErrBridgeUnavailable while open, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
	if g.Rejected() != 1 {
		t.Errorf("rejected = %d, want 1", g.Rejected())
	}

	// Probe fails: back to open.
	clock = clock.Add(time.Minute)
	if err := g.Submit(ctx, trade); err == nil || errors.Is(err, errors.ErrBridgeUnavailable) {
		t.Fatalf("expected probe to reach inner bridge, got %v", err)
	}
	if g.State() != BreakerOpen {
		t.Fatalf("state = %s after failed probe, want OPEN", g.State())
	}

	// Probe succeeds: closed.
	clock = clock.Add(time.Minute)
	inner.err = nil
	if _, err := g.PollReports(ctx, func(models.ExecutionReport) error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if g.State() != BreakerClosed {
		t.Fatalf("state = %s, want CLOSED", g.State())
	}
}

func TestGuardedSuccessResetsFailures(t *testing.T) {
	inner := &flakyBridge{}
	g := NewGuarded(inner, BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	inner.err = stderrors.New("busy")
	_ = g.Submit(ctx, models.Trade{})
	inner.err = nil
	_ = g.Submit(ctx, models.Trade{})
	inner.err = stderrors.New("busy")
	_ = g.Submit(ctx, models.Trade{})

	if g.State() != BreakerClosed {
		t.Errorf("state = %s, want CLOSED after non-consecutive failures", g.State())
	}
}

func TestGuardedIgnoresHandlerFailures(t *testing.T) {
	inner := &flakyBridge{}
	g := NewGuarded(inner, BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute}, zerolog.Nop())

	storeErr := stderrors.New("database is locked")
	_, err := g.PollReports(context.Background(), func(models.ExecutionReport) error { return storeErr })
	if !stderrors.Is(err, storeErr) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if g.State() != BreakerClosed {
		t.Errorf("state = %s, want CLOSED after a handler failure", g.State())
	}
}

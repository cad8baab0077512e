package trading

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/umair24171/scalp-agent/internal/errors"
)

func utc(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestSessionGate_IsActiveSession(t *testing.T) {
	g, err := NewSessionGate(DefaultSessionConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2024-03-04 is a Monday.
	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"tuesday mid session", utc(2024, 3, 5, 12, 30), true},
		{"tuesday session start", utc(2024, 3, 5, 12, 0), true},
		{"tuesday session end is exclusive", utc(2024, 3, 5, 13, 0), false},
		{"tuesday afternoon", utc(2024, 3, 5, 14, 0), false},
		{"tuesday morning", utc(2024, 3, 5, 11, 59), false},
		{"monday in session", utc(2024, 3, 4, 12, 15), true},
		{"friday in session", utc(2024, 3, 8, 12, 45), true},
		{"friday after close", utc(2024, 3, 8, 13, 5), false},
		{"saturday", utc(2024, 3, 9, 12, 30), false},
		{"sunday", utc(2024, 3, 10, 12, 30), false},
		{"non-UTC location is normalized", time.Date(2024, 3, 5, 14, 30, 0, 0, time.FixedZone("CEST", 2*3600)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.IsActiveSession(tt.ts); got != tt.want {
				t.Errorf("IsActiveSession(%v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestSessionGate_EdgeRulesOnlyNarrow(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.StartHour, cfg.EndHour = 8, 16
	cfg.MondayStartHour = 10
	cfg.FridayEndHour = 14
	g, err := NewSessionGate(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.IsActiveSession(utc(2024, 3, 4, 9, 0)) {
		t.Error("Monday before 10:00 should be inactive")
	}
	if !g.IsActiveSession(utc(2024, 3, 5, 9, 0)) {
		t.Error("Tuesday 09:00 should be active")
	}
	if g.IsActiveSession(utc(2024, 3, 8, 14, 30)) {
		t.Error("Friday after 14:00 should be inactive")
	}
	if !g.IsActiveSession(utc(2024, 3, 8, 13, 30)) {
		t.Error("Friday 13:30 should be active")
	}

	// A Monday rule earlier than the window never widens it.
	cfg.MondayStartHour = 6
	g, _ = NewSessionGate(cfg)
	if g.IsActiveSession(utc(2024, 3, 4, 7, 0)) {
		t.Error("Monday rule must not widen the window")
	}
}

func TestSessionGate_CheckSessionReason(t *testing.T) {
	g, _ := NewSessionGate(DefaultSessionConfig())
	err := g.CheckSession(utc(2024, 3, 5, 14, 0))
	if !errors.Is(err, apperrors.ErrOutsideSession) {
		t.Fatalf("expected ErrOutsideSession, got %v", err)
	}
}

func TestSessionGate_Cooldown(t *testing.T) {
	g, _ := NewSessionGate(DefaultSessionConfig())
	t0 := utc(2024, 3, 5, 12, 10)

	if err := g.CheckCooldown("XAUUSD", t0); err != nil {
		t.Fatalf("no prior signal should pass, got %v", err)
	}
	g.MarkSignal("XAUUSD", t0)

	err := g.CheckCooldown("XAUUSD", t0.Add(3*time.Minute))
	var cd *apperrors.CooldownError
	if !errors.As(err, &cd) {
		t.Fatalf("expected CooldownError, got %v", err)
	}
	if cd.Remaining != 2*time.Minute {
		t.Errorf("expected 2m remaining, got %v", cd.Remaining)
	}
	if !errors.Is(err, apperrors.ErrCooldownActive) {
		t.Error("expected error to match ErrCooldownActive")
	}

	if err := g.CheckCooldown("XAUUSD", t0.Add(5*time.Minute)); err != nil {
		t.Errorf("cooldown should have elapsed, got %v", err)
	}
	if err := g.CheckCooldown("EURUSD", t0.Add(time.Minute)); err != nil {
		t.Errorf("cooldown is per symbol, got %v", err)
	}
}

func TestSessionConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SessionConfig)
	}{
		{"zero cooldown", func(c *SessionConfig) { c.Cooldown = 0 }},
		{"negative cooldown", func(c *SessionConfig) { c.Cooldown = -time.Minute }},
		{"inverted window", func(c *SessionConfig) { c.StartHour, c.EndHour = 14, 12 }},
		{"hour out of range", func(c *SessionConfig) { c.FridayEndHour = 25 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSessionConfig()
			tt.mutate(&cfg)
			if _, err := NewSessionGate(cfg); !errors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

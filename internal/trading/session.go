// Package trading provides the session gate, trade lifecycle and performance
// statistics of the signal engine.
package trading

import (
	"fmt"
	"time"

	"github.com/umair24171/scalp-agent/internal/errors"
)

// SessionConfig holds the trading window, expressed in UTC hours.
type SessionConfig struct {
	StartHour       int // first active hour, inclusive
	EndHour         int // last active hour, exclusive
	MondayStartHour int // Monday is inactive before this hour
	FridayEndHour   int // Friday is inactive from this hour on
	Cooldown        time.Duration
}

// DefaultSessionConfig returns the 12:00-13:00 UTC window with a 5 minute
// cooldown.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		StartHour:       12,
		EndHour:         13,
		MondayStartHour: 10,
		FridayEndHour:   13,
		Cooldown:        5 * time.Minute,
	}
}

// Validate checks the session configuration.
func (c SessionConfig) Validate() error {
	hours := []struct {
		field string
		value int
	}{
		{"session.start_hour", c.StartHour},
		{"session.end_hour", c.EndHour},
		{"session.monday_start_hour", c.MondayStartHour},
		{"session.friday_end_hour", c.FridayEndHour},
	}
	for _, h := range hours {
		if h.value < 0 || h.value > 24 {
			return errors.NewValidationError(h.field, h.value, "must be between 0 and 24")
		}
	}
	if c.StartHour >= c.EndHour {
		return errors.NewValidationError("session.end_hour", c.EndHour, "must be after start_hour")
	}
	if c.Cooldown <= 0 {
		return errors.NewValidationError("session.cooldown", c.Cooldown, "must be positive")
	}
	return nil
}

// SessionGate enforces the trading window and the per-symbol cooldown
// between signals. It is not safe for concurrent use.
type SessionGate struct {
	cfg        SessionConfig
	lastSignal map[string]time.Time
}

// NewSessionGate creates a session gate.
func NewSessionGate(cfg SessionConfig) (*SessionGate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SessionGate{
		cfg:        cfg,
		lastSignal: make(map[string]time.Time),
	}, nil
}

// IsActiveSession reports whether new signals may be generated at ts.
func (g *SessionGate) IsActiveSession(ts time.Time) bool {
	return g.CheckSession(ts) == nil
}

// CheckSession returns nil inside the window, or an error wrapping
// ErrOutsideSession that says why not. Monday and Friday rules only ever
// narrow the nominal window.
func (g *SessionGate) CheckSession(ts time.Time) error {
	t := ts.UTC()
	hour := t.Hour()

	var reason string
	switch {
	case t.Weekday() == time.Saturday || t.Weekday() == time.Sunday:
		reason = "weekend"
	case hour < g.cfg.StartHour || hour >= g.cfg.EndHour:
		reason = fmt.Sprintf("%02d:%02d UTC outside %02d:00-%02d:00", hour, t.Minute(), g.cfg.StartHour, g.cfg.EndHour)
	case t.Weekday() == time.Monday && hour < g.cfg.MondayStartHour:
		reason = fmt.Sprintf("Monday before %02d:00 UTC", g.cfg.MondayStartHour)
	case t.Weekday() == time.Friday && hour >= g.cfg.FridayEndHour:
		reason = fmt.Sprintf("Friday after %02d:00 UTC", g.cfg.FridayEndHour)
	default:
		return nil
	}
	return errors.Wrap(errors.ErrOutsideSession, reason)
}

// CheckCooldown returns a *CooldownError while less than the cooldown has
// elapsed since the symbol's last signal.
func (g *SessionGate) CheckCooldown(symbol string, ts time.Time) error {
	last, ok := g.lastSignal[symbol]
	if !ok {
		return nil
	}
	if elapsed := ts.Sub(last); elapsed < g.cfg.Cooldown {
		return &errors.CooldownError{Symbol: symbol, Remaining: g.cfg.Cooldown - elapsed}
	}
	return nil
}

// MarkSignal records a signal emission for the symbol.
func (g *SessionGate) MarkSignal(symbol string, ts time.Time) {
	g.lastSignal[symbol] = ts
}

// LastSignal returns the symbol's last signal time.
func (g *SessionGate) LastSignal(symbol string) (time.Time, bool) {
	t, ok := g.lastSignal[symbol]
	return t, ok
}

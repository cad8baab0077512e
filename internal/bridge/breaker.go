package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/umair24171/scalp-agent/internal/errors"
	"github.com/umair24171/scalp-agent/internal/models"
)

// BreakerState is the state of a Guarded bridge.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"    // calls pass through
	BreakerOpen     BreakerState = "OPEN"      // calls fail fast
	BreakerHalfOpen BreakerState = "HALF_OPEN" // one probe allowed
)

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		Cooldown:         time.Minute,
	}
}

// Guarded wraps a Bridge with a circuit breaker. While open, Submit and
// PollReports return ErrBridgeUnavailable without touching the venue.
type Guarded struct {
	next   Bridge
	cfg    BreakerConfig
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	rejected int64
}

// NewGuarded wraps next.
func NewGuarded(next Bridge, cfg BreakerConfig, logger zerolog.Logger) *Guarded {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	return &Guarded{
		next:   next,
		cfg:    cfg,
		logger: logger.With().Str("component", "bridge_breaker").Logger(),
		now:    time.Now,
		state:  BreakerClosed,
	}
}

// Submit forwards trade unless the breaker is open.
func (g *Guarded) Submit(ctx context.Context, trade models.Trade) error {
	if err := g.allow(); err != nil {
		return errors.NewBridgeError(trade.ID, "submit", err)
	}
	err := g.next.Submit(ctx, trade)
	g.record(err)
	return err
}

// PollReports forwards to the wrapped bridge unless the breaker is open.
// Errors returned by handle are not bridge faults and leave the breaker as is.
func (g *Guarded) PollReports(ctx context.Context, handle func(models.ExecutionReport) error) (int, error) {
	if err := g.allow(); err != nil {
		return 0, errors.NewBridgeError("", "poll", err)
	}
	var handleErr error
	n, err := g.next.PollReports(ctx, func(r models.ExecutionReport) error {
		handleErr = handle(r)
		return handleErr
	})
	if handleErr != nil {
		g.record(nil)
	} else {
		g.record(err)
	}
	return n, err
}

// State returns the current breaker state.
func (g *Guarded) State() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Rejected returns how many calls were refused while open.
func (g *Guarded) Rejected() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rejected
}

func (g *Guarded) allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case BreakerOpen:
		if g.now().Sub(g.openedAt) < g.cfg.Cooldown {
			g.rejected++
			return errors.ErrBridgeUnavailable
		}
		g.transition(BreakerHalfOpen)
	}
	return nil
}

func (g *Guarded) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err == nil {
		if g.state != BreakerClosed {
			g.transition(BreakerClosed)
		}
		g.failures = 0
		return
	}

	switch g.state {
	case BreakerHalfOpen:
		g.transition(BreakerOpen)
	case BreakerClosed:
		g.failures++
		if g.failures >= g.cfg.FailureThreshold {
			g.transition(BreakerOpen)
		}
	}
}

func (g *Guarded) transition(state BreakerState) {
	g.logger.Warn().
		Str("from", string(g.state)).
		Str("to", string(state)).
		Int("failures", g.failures).
		Msg("Bridge breaker state change")

	g.state = state
	g.failures = 0
	if state == BreakerOpen {
		g.openedAt = g.now()
	}
}

// Package breaker implements a per-channel circuit breaker. A channel that
// keeps failing is opened so delivery workers stop burning retries on it,
// then probed again after a cooldown.
package breaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Breaker states.
const (
	StateClosed   = "CLOSED"
	StateOpen     = "OPEN"
	StateHalfOpen = "HALF_OPEN"
)

// ErrOpen is returned by Allow when the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

// Config defines breaker behavior.
type Config struct {
	FailureThreshold int           // Consecutive failures before opening
	OpenDuration     time.Duration // How long to stay open before probing
}

// DefaultConfig returns the delivery breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		OpenDuration:     30 * time.Second,
	}
}

// Breaker is a circuit breaker for a single delivery channel.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu       sync.Mutex
	state    string
	failures int
	openedAt time.Time
}

// New creates a closed breaker for the named channel.
func New(name string, cfg Config) *Breaker {
	return newWithClock(name, cfg, time.Now)
}

func newWithClock(name string, cfg Config, now func() time.Time) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = DefaultConfig().OpenDuration
	}
	return &Breaker{
		name:  name,
		cfg:   cfg,
		now:   now,
		state: StateClosed,
	}
}

// Allow reports whether a delivery may proceed. When the open cooldown has
// elapsed, the breaker transitions to half-open and admits a single probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.OpenDuration {
			b.state = StateHalfOpen
			slog.Info("Circuit breaker half-open, probing channel", "channel", b.name)
			return nil
		}
		return ErrOpen
	default:
		return nil
	}
}

// RecordSuccess resets the breaker to closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		slog.Info("Circuit breaker closed, channel recovered", "channel", b.name)
	}
	b.state = StateClosed
	b.failures = 0
}

// RecordFailure counts a failed delivery. A half-open probe failure or
// reaching the failure threshold opens the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++

	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		if b.state != StateOpen {
			slog.Warn("Circuit breaker opened",
				"channel", b.name,
				"failures", b.failures,
				"cooldown", b.cfg.OpenDuration,
			)
		}
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// State returns the current breaker state.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

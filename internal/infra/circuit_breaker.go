package infra

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the position of a vendor circuit breaker.
type BreakerState int

const (
	StateClosed   BreakerState = iota // calls pass through
	StateOpen                         // calls are rejected with ErrCircuitOpen
	StateHalfOpen                     // trial calls decide between closed and open
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig configures a breaker for one vendor API.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive transient failures before opening
	SuccessThreshold int           // half-open successes before closing
	Cooldown         time.Duration // open time before the first trial call
	Clock            Clock         // nil means SystemClock
}

// DefaultCircuitBreakerConfig returns the settings the vendor clients use.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// CircuitBreaker stops calling a vendor that keeps failing.
// Only transient failures (see IsTransient) count, so a 404 for an unknown
// coin never isolates CoinGecko. Safe for concurrent use.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	return &CircuitBreaker{cfg: cfg}
}

// Allow reports whether a call may proceed. An open breaker whose cooldown
// has elapsed moves to half-open and lets the call through as a trial.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.cfg.Clock.Now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			return false
		}
		cb.moveTo(StateHalfOpen, "cooldown elapsed")
	}
	return true
}

// RecordSuccess counts a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.moveTo(StateClosed, "recovered")
		}
	}
}

// RecordFailure counts a transient failure.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.moveTo(StateOpen, "failures exceeded threshold")
		}
	case StateHalfOpen:
		cb.moveTo(StateOpen, "trial call failed")
	}
}

// moveTo changes state and resets the counters. Callers hold mu.
func (cb *CircuitBreaker) moveTo(next BreakerState, reason string) {
	cb.state = next
	cb.failures = 0
	cb.successes = 0
	if next == StateOpen {
		cb.openedAt = cb.cfg.Clock.Now()
	}

	attrs := []any{slog.String("vendor", cb.cfg.Name), slog.String("reason", reason)}
	if next == StateOpen {
		slog.Warn("Vendor circuit "+next.String(), attrs...)
	} else {
		slog.Info("Vendor circuit "+next.String(), attrs...)
	}
}

// Execute runs fn unless the breaker is open, then records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return fmt.Errorf("%s: %w", cb.cfg.Name, ErrCircuitOpen)
	}
	err := fn()
	switch {
	case err == nil:
		cb.RecordSuccess()
	case IsTransient(err):
		cb.RecordFailure()
	}
	return err
}

// Name returns the vendor name the breaker guards.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveTo(StateClosed, "reset")
}

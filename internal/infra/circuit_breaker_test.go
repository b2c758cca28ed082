package infra

import (
	"errors"
	"testing"
	"time"
)

func newTestBreaker(failures, successes int) (*CircuitBreaker, *ManualClock) {
	clock := NewManualClock(time.Unix(1700000000, 0))
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "coingecko",
		FailureThreshold: failures,
		SuccessThreshold: successes,
		Cooldown:         30 * time.Second,
		Clock:            clock,
	})
	return cb, clock
}

func TestCircuitBreaker_AllowInClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("openweather"))

	if !cb.Allow() {
		t.Error("Expected Allow() to return true in CLOSED state")
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state CLOSED, got %s", cb.GetState())
	}
	if cb.Name() != "openweather" {
		t.Errorf("Expected name openweather, got %s", cb.Name())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, 2)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Error("Should still be CLOSED after 2 failures")
	}

	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Errorf("Expected OPEN after 3 failures, got %s", cb.GetState())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false in OPEN state")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(2, 1)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Errorf("failures must be consecutive, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_CooldownAndRecovery(t *testing.T) {
	cb, clock := newTestBreaker(2, 2)
	cb.RecordFailure()
	cb.RecordFailure()

	clock.Advance(29 * time.Second)
	if cb.Allow() {
		t.Fatal("Expected the breaker to stay open before the cooldown")
	}

	clock.Advance(time.Second)
	if !cb.Allow() {
		t.Fatal("Expected a trial call once the cooldown elapsed")
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("Expected HALF_OPEN, got %s", cb.GetState())
	}

	cb.RecordSuccess()
	if cb.GetState() != StateHalfOpen {
		t.Error("Should still be HALF_OPEN after 1 success")
	}
	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Errorf("Expected CLOSED after 2 successes, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_TrialFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, 1)
	cb.RecordFailure()

	clock.Advance(30 * time.Second)
	cb.Allow()
	cb.RecordFailure()

	if cb.GetState() != StateOpen {
		t.Fatalf("Expected OPEN after a failed trial, got %s", cb.GetState())
	}
	if cb.Allow() {
		t.Error("a reopened breaker must wait a full cooldown again")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, 1)
	cb.RecordFailure()

	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Errorf("Expected CLOSED after Reset, got %s", cb.GetState())
	}
	if !cb.Allow() {
		t.Error("Expected Allow() to return true after Reset")
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb, _ := newTestBreaker(2, 1)

	notFound := &UpstreamError{Service: "coingecko", Status: 404}
	for i := 0; i < 5; i++ {
		cb.Execute(func() error { return notFound })
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("client errors must not open the breaker, got %s", cb.GetState())
	}

	unavailable := &UpstreamError{Service: "coingecko", Status: 503}
	cb.Execute(func() error { return unavailable })
	cb.Execute(func() error { return unavailable })
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected OPEN after 2 transient failures, got %s", cb.GetState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if called {
		t.Error("fn must not run while the breaker is open")
	}
	if !errors.Is(err, ErrCircuitOpen) || !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("Expected ErrCircuitOpen wrapping ErrUpstreamUnavailable, got %v", err)
	}
	if IsTransient(err) {
		t.Error("an open circuit must not be retried")
	}
}

package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUpstreamUnavailable is wrapped by every failed vendor call.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMissingParameter rejects a request lacking required input.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrCircuitOpen is returned without calling the vendor while its breaker is open.
	ErrCircuitOpen = fmt.Errorf("circuit open: %w", ErrUpstreamUnavailable)
)

// UpstreamError describes a failed vendor call (non-2xx or network failure).
type UpstreamError struct {
	Service string
	Status  int // 0 for network-level failures
	Err     error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s returned %d", e.Service, e.Status)
	default:
		return fmt.Sprintf("%s returned %d: %v", e.Service, e.Status, e.Err)
	}
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}

// Transient reports whether a retry could plausibly succeed:
// network errors, timeouts, rate limiting and 5xx responses.
func (e *UpstreamError) Transient() bool {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	case e.Status != 0:
		return false
	}
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	return true
}

// IsTransient classifies any error returned by a vendor client.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Transient()
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// MissingParam builds an ErrMissingParameter for name.
func MissingParam(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}

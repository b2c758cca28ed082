package infra

import (
	"fmt"
	"time"
)

const (
	// Standard backoff constants
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second

	// DefaultReconnectDelay is the fixed delay between live feed reconnect attempts.
	DefaultReconnectDelay = 5 * time.Second
)

// BackoffPolicy maps a retry count (0 = first retry) to a wait duration.
type BackoffPolicy func(retryCount int) time.Duration

// FixedBackoff waits the same delay before every attempt. Retries are unbounded.
func FixedBackoff(delay time.Duration) BackoffPolicy {
	return func(int) time.Duration { return delay }
}

// ExponentialBackoff returns base * 2^retry capped at max.
func ExponentialBackoff(base, max time.Duration) BackoffPolicy {
	return func(retryCount int) time.Duration {
		if retryCount < 0 {
			return base
		}
		// 2^30 * base is already far beyond any sane cap.
		if retryCount > 30 {
			return max
		}
		backoff := base * time.Duration(1<<retryCount)
		if backoff > max || backoff <= 0 {
			return max
		}
		return backoff
	}
}

// CalculateBackoff is the default exponential policy (1s doubling to 60s).
func CalculateBackoff(retryCount int) time.Duration {
	return ExponentialBackoff(baseDelay, maxDelay)(retryCount)
}

// ParseBackoffPolicy builds a policy from config ("fixed" or "exponential").
func ParseBackoffPolicy(name string, delay time.Duration) (BackoffPolicy, error) {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	switch name {
	case "", "fixed":
		return FixedBackoff(delay), nil
	case "exponential":
		return ExponentialBackoff(delay, maxDelay), nil
	default:
		return nil, fmt.Errorf("unknown reconnect policy %q", name)
	}
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Policy describes a bounded retry loop. A Multiplier of 0 or 1 gives a fixed
// delay between attempts; anything larger gives exponential backoff capped at
// MaxDelay. Jitter is the fraction (0–1) of random extra delay added on top.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	Jitter      float64
}

// Fixed returns a policy that waits the same delay between every attempt.
func Fixed(maxAttempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Delay: delay}
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do stops immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds, returns a Permanent error, exhausts
// MaxAttempts, or ctx is cancelled during a wait. The op label is used for
// log output only.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.delayFor(attempt)
			log.Printf("[Retry] %s attempt %d/%d in %v...", op, attempt, p.MaxAttempts, delay)

			select {
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled while waiting to retry: %w", op, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Printf("[Retry] %s succeeded on attempt %d", op, attempt)
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		lastErr = err
		log.Printf("[Retry] %s attempt %d/%d failed: %v", op, attempt, p.MaxAttempts, err)
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, p.MaxAttempts, lastErr)
}

// delayFor computes the wait before the given attempt (attempt >= 2).
func (p Policy) delayFor(attempt int) time.Duration {
	delay := float64(p.Delay)
	if p.Multiplier > 1 {
		delay *= math.Pow(p.Multiplier, float64(attempt-2))
		if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
			delay = float64(p.MaxDelay)
		}
	}
	if p.Jitter > 0 {
		delay += delay * p.Jitter * rand.Float64()
	}
	return time.Duration(delay)
}

// RetryableStatus reports whether an HTTP status code is worth retrying.
func RetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || // 429
		status == http.StatusRequestTimeout || // 408
		status == http.StatusInternalServerError || // 500
		status == http.StatusBadGateway || // 502
		status == http.StatusServiceUnavailable || // 503
		status == http.StatusGatewayTimeout // 504
}

// RetryableError reports whether a network-level error is worth retrying.
func RetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "broken pipe")
}

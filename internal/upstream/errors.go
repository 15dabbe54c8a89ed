package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// RateLimitError reports that the local hourly budget is exhausted. The
// request was never sent; Wait says how long until the window resets.
type RateLimitError struct {
	Name string
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("upstream %s: hourly request budget exhausted, window resets in %s", e.Name, e.Wait.Round(time.Second))
}

// CircuitOpenError reports that the circuit breaker rejected the call
// without dialing the upstream.
type CircuitOpenError struct {
	Name string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("upstream %s: circuit open", e.Name)
}

// TimeoutError reports a single attempt exceeding its deadline.
type TimeoutError struct {
	URL   string
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream request timed out: %s", e.URL)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// UpstreamError is a non-2xx response from the catalog. Body holds a
// trimmed snippet of the response for logs, never the full payload.
type UpstreamError struct {
	StatusCode int
	URL        string
	RetryAfter time.Duration
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream returned %d for %s (retry after %s)", e.StatusCode, e.URL, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("upstream returned %d for %s", e.StatusCode, e.URL)
}

// Transient reports whether a retry could plausibly succeed: throttling
// and server-side faults. Other 4xx responses are contract violations
// that no amount of retrying fixes.
func (e *UpstreamError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// PayloadError is a 2xx response whose body could not be decoded.
// Malformed payloads never heal on retry.
type PayloadError struct {
	URL   string
	Cause error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("decode upstream response from %s: %v", e.URL, e.Cause)
}

func (e *PayloadError) Unwrap() error { return e.Cause }

// IsTransient reports whether the failure is worth rescheduling: local
// limiter stops, open circuits, timeouts, network faults, 429 and 5xx.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var (
		limited *RateLimitError
		open    *CircuitOpenError
		timeout *TimeoutError
		up      *UpstreamError
	)
	switch {
	case errors.As(err, &limited), errors.As(err, &open), errors.As(err, &timeout):
		return true
	case errors.As(err, &up):
		return up.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsPermanent reports whether rescheduling is pointless: 4xx responses
// other than 429, and bodies the client could not decode.
func IsPermanent(err error) bool {
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.StatusCode >= 400 && up.StatusCode < 500 && up.StatusCode != http.StatusTooManyRequests
	}
	var payload *PayloadError
	return errors.As(err, &payload)
}

// IsRateLimited reports whether the failure came from throttling, either
// the local budget gate or an upstream 429.
func IsRateLimited(err error) bool {
	var limited *RateLimitError
	if errors.As(err, &limited) {
		return true
	}
	var up *UpstreamError
	return errors.As(err, &up) && up.StatusCode == http.StatusTooManyRequests
}

// RetryAfterHint extracts how long the failure asks callers to wait, from
// either the local window or an upstream Retry-After header.
func RetryAfterHint(err error) (time.Duration, bool) {
	var limited *RateLimitError
	if errors.As(err, &limited) && limited.Wait > 0 {
		return limited.Wait, true
	}
	var up *UpstreamError
	if errors.As(err, &up) && up.RetryAfter > 0 {
		return up.RetryAfter, true
	}
	return 0, false
}

package upstream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/openbench/jurisync/internal/observability/statsd"
)

const (
	defaultFailureThreshold = 5
	defaultCooldown         = 30 * time.Second
)

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// Name tags errors, logs, and metrics, usually the upstream host.
	Name string
	// FailureThreshold is how many consecutive counted failures open the
	// circuit. Defaults to 5.
	FailureThreshold uint32
	// Cooldown is how long an open circuit waits before allowing a single
	// probe request. Defaults to 30s.
	Cooldown time.Duration
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// Breaker guards upstream calls with a shared circuit. After the failure
// threshold trips it, calls are rejected locally for the cooldown, then one
// probe is let through; its outcome closes or reopens the circuit.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[*http.Response]
}

// NewBreaker builds a breaker that opens on consecutive timeouts, network
// faults, and 5xx responses. Throttling and permanent 4xx outcomes say
// nothing about upstream health and never count against the circuit.
func NewBreaker(cfg BreakerConfig) *Breaker {
	name := cfg.Name
	if name == "" {
		name = "upstream"
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = defaultFailureThreshold
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !countsAsBreakerFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream circuit state change",
				"upstream", name,
				"from", from.String(),
				"to", to.String(),
			)
			if metrics != nil {
				metrics.Gauge("upstream.breaker.state", breakerStateValue(to), map[string]string{"upstream": name})
			}
		},
	}

	return &Breaker{
		name: name,
		cb:   gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// Do runs one attempt under the circuit. Rejections while the circuit is
// open, or beyond the half-open probe allowance, come back as a
// CircuitOpenError so callers can tell them from real upstream failures.
func (b *Breaker) Do(fn func() (*http.Response, error)) (*http.Response, error) {
	resp, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &CircuitOpenError{Name: b.name}
	}
	return resp, err
}

// State reports the current circuit state without side effects.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Counts reports the circuit's rolling counters without side effects.
func (b *Breaker) Counts() gobreaker.Counts { return b.cb.Counts() }

// countsAsBreakerFailure reports whether an attempt outcome indicates
// upstream ill health. Local limiter stops, caller cancellation, permanent
// 4xx responses, and undecodable bodies do not.
func countsAsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimited(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.StatusCode >= 500
	}
	var payload *PayloadError
	if errors.As(err, &payload) {
		return false
	}
	return true
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

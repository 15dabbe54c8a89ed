// Package queue holds domain logic for the sync queue: lease resolution and
// job-availability notification.
package queue

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidDefaultLease is returned when a policy is built with a
// non-positive default lease.
var ErrInvalidDefaultLease = errors.New("default lease must be positive")

// LeaseSource records where a resolved lease duration came from.
type LeaseSource string

const (
	// LeaseSourceExplicit means the caller's own positive duration was used.
	LeaseSourceExplicit LeaseSource = "explicit"
	// LeaseSourceDefault means the caller passed zero and got the policy default.
	LeaseSourceDefault LeaseSource = "default"
	// LeaseSourceClamped means the request was pulled into the supported range.
	LeaseSourceClamped LeaseSource = "clamped"
)

// LeasePolicy turns lease requests from claims and heartbeats into the whole
// seconds the queue tables store. Durations under a second round up rather
// than producing a lease that expires before the first heartbeat.
type LeasePolicy struct {
	defaultLease time.Duration
}

// NewLeasePolicy builds a policy around the given default lease.
func NewLeasePolicy(defaultLease time.Duration) (*LeasePolicy, error) {
	if defaultLease <= 0 {
		return nil, ErrInvalidDefaultLease
	}
	return &LeasePolicy{
		defaultLease: defaultLease,
	}, nil
}

// Default returns the fallback lease duration. Nil-safe.
func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultLease
}

// LeaseDecision is the resolved lease plus how it was arrived at, so callers
// can log when a worker's requested lease was not honored as-is.
type LeaseDecision struct {
	Seconds   int
	Source    LeaseSource
	Requested time.Duration
}

// UsedDefault reports whether the policy default was applied.
func (d LeaseDecision) UsedDefault() bool {
	return d.Source == LeaseSourceDefault
}

// Clamped reports whether the request was adjusted into the supported range.
func (d LeaseDecision) Clamped() bool {
	return d.Source == LeaseSourceClamped
}

// Resolve maps a requested duration to lease seconds: positive requests are
// truncated to seconds (floored at one), zero takes the default, and negative
// requests clamp to the one-second minimum.
func (p *LeasePolicy) Resolve(request time.Duration) LeaseDecision {
	if p == nil {
		return LeaseDecision{Seconds: 0, Source: LeaseSourceDefault, Requested: request}
	}

	decision := LeaseDecision{Requested: request}

	switch {
	case request > 0:
		seconds, clamped := leaseSeconds(request)
		decision.Seconds = seconds
		if clamped {
			decision.Source = LeaseSourceClamped
		} else {
			decision.Source = LeaseSourceExplicit
		}
		return decision
	case request == 0:
		seconds, _ := leaseSeconds(p.defaultLease)
		decision.Seconds = seconds
		decision.Source = LeaseSourceDefault
		return decision
	default:
		decision.Seconds = 1
		decision.Source = LeaseSourceClamped
		return decision
	}
}

// leaseSeconds truncates a duration to whole seconds within [1, MaxInt] and
// reports whether clamping was needed.
func leaseSeconds(d time.Duration) (int, bool) {
	seconds := int64(d / time.Second)
	clamped := false

	if seconds <= 0 {
		seconds = 1
		clamped = true
	}

	if seconds > int64(math.MaxInt) {
		return math.MaxInt, true
	}

	return int(seconds), clamped
}

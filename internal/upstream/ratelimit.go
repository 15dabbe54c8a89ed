package upstream

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultHourlyQuota  = 5000
	defaultSafetyMargin = 0.90
	limiterWindow       = time.Hour
)

// LimiterConfig configures an HourlyLimiter.
type LimiterConfig struct {
	// Name tags errors and metrics, usually the upstream host.
	Name string
	// HourlyQuota is the documented request allowance per hour.
	HourlyQuota int
	// SafetyMargin caps effective usage at a fraction of the quota so
	// interactive use of the same key is never starved. Defaults to 0.90.
	SafetyMargin float64
	// Burst bounds how many acquisitions pass without pacing delay.
	Burst int
	// Now is an injectable clock for tests.
	Now func() time.Time
}

// HourlyLimiter is a fixed-window request gate shared by every worker that
// talks to one upstream. Exhausting the effective budget fails fast with a
// RateLimitError; within budget, issuance is paced by a token bucket so the
// hourly allowance is not burned in the first minutes of the window.
type HourlyLimiter struct {
	name   string
	budget int
	now    func() time.Time
	pacer  *rate.Limiter

	mu          sync.Mutex
	windowStart time.Time
	used        int
}

// NewHourlyLimiter builds a limiter whose effective budget is
// floor(quota * margin), never below one request per window.
func NewHourlyLimiter(cfg LimiterConfig) *HourlyLimiter {
	name := cfg.Name
	if name == "" {
		name = "upstream"
	}
	quota := cfg.HourlyQuota
	if quota <= 0 {
		quota = defaultHourlyQuota
	}
	margin := cfg.SafetyMargin
	if margin <= 0 || margin > 1 {
		margin = defaultSafetyMargin
	}
	budget := int(float64(quota) * margin)
	if budget < 1 {
		budget = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = budget / 60
		if burst < 1 {
			burst = 1
		}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &HourlyLimiter{
		name:   name,
		budget: budget,
		now:    now,
		pacer:  rate.NewLimiter(rate.Every(limiterWindow/time.Duration(budget)), burst),
	}
}

// Acquire consumes one request slot. It returns a RateLimitError without
// blocking when the window's budget is spent, otherwise it waits for the
// pacer or the context, whichever comes first.
func (l *HourlyLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	l.roll(now)
	if l.used >= l.budget {
		wait := l.windowStart.Add(limiterWindow).Sub(now)
		l.mu.Unlock()
		return &RateLimitError{Name: l.name, Wait: wait}
	}
	l.used++
	window := l.windowStart
	l.mu.Unlock()

	if err := l.pacer.Wait(ctx); err != nil {
		// The caller gave up while pacing; hand the slot back, unless the
		// window it was taken from has already rolled over and reset the
		// count.
		l.mu.Lock()
		if l.windowStart.Equal(window) && l.used > 0 {
			l.used--
		}
		l.mu.Unlock()
		return err
	}
	return nil
}

// Remaining returns the unconsumed budget in the current window.
func (l *HourlyLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.roll(l.now())
	return l.budget - l.used
}

// Utilization returns the consumed fraction of the effective budget.
func (l *HourlyLimiter) Utilization() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.roll(l.now())
	return float64(l.used) / float64(l.budget)
}

// TimeToReset returns how long until the current window rolls over.
func (l *HourlyLimiter) TimeToReset() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.roll(now)
	return l.windowStart.Add(limiterWindow).Sub(now)
}

// Budget returns the effective per-window allowance.
func (l *HourlyLimiter) Budget() int { return l.budget }

// Name returns the limiter's upstream tag.
func (l *HourlyLimiter) Name() string { return l.name }

// roll advances the window to cover now. Callers hold l.mu. The first call
// anchors the window so counting starts from actual first use.
func (l *HourlyLimiter) roll(now time.Time) {
	if l.windowStart.IsZero() {
		l.windowStart = now
		return
	}
	if elapsed := now.Sub(l.windowStart); elapsed >= limiterWindow {
		steps := int64(elapsed / limiterWindow)
		l.windowStart = l.windowStart.Add(time.Duration(steps) * limiterWindow)
		l.used = 0
	}
}

package config

import (
	"strings"
	"time"
)

// UpstreamConfig contains configuration for the legal-data catalog client
// shared by every sync worker.
type UpstreamConfig struct {
	// BaseURL is the catalog API root, e.g. "https://api.example.org/api/rest/v4".
	// Required whenever the sync worker service is enabled.
	BaseURL string `env:"UPSTREAM_BASE_URL"`

	// APIToken authenticates requests with a static token header.
	// Ignored when OAuth client credentials are configured.
	APIToken string `env:"UPSTREAM_API_TOKEN"`

	// OAuthTokenURL switches authentication to the OAuth2 client-credentials flow.
	OAuthTokenURL     string   `env:"UPSTREAM_OAUTH_TOKEN_URL"`
	OAuthClientID     string   `env:"UPSTREAM_OAUTH_CLIENT_ID"`
	OAuthClientSecret string   `env:"UPSTREAM_OAUTH_CLIENT_SECRET"`
	OAuthScopes       []string `env:"UPSTREAM_OAUTH_SCOPES" envSeparator:","`

	// Timeout bounds each request attempt, not the whole retry loop.
	Timeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`

	// MaxRetries bounds in-client retries for timeouts, network faults, and 5xx.
	MaxRetries int `env:"UPSTREAM_MAX_RETRIES" envDefault:"3"`

	// RetryBaseDelay is the backoff after the first failed attempt.
	RetryBaseDelay time.Duration `env:"UPSTREAM_RETRY_BASE_DELAY" envDefault:"500ms"`

	// RetryMaxDelay caps the exponential backoff between attempts.
	RetryMaxDelay time.Duration `env:"UPSTREAM_RETRY_MAX_DELAY" envDefault:"10s"`

	// PageSize is the page_size query sent on first-page listing requests.
	PageSize int `env:"UPSTREAM_PAGE_SIZE" envDefault:"100"`

	// UserAgent identifies this service to the upstream operator.
	UserAgent string `env:"UPSTREAM_USER_AGENT" envDefault:"jurisync/1.0"`

	// HourlyQuota is the documented request allowance per hour.
	HourlyQuota int `env:"UPSTREAM_HOURLY_QUOTA" envDefault:"5000"`

	// SafetyMargin caps effective usage at a fraction of the quota so
	// interactive use of the same API key is never starved.
	SafetyMargin float64 `env:"UPSTREAM_SAFETY_MARGIN" envDefault:"0.90"`

	// Burst bounds how many rate-limited acquisitions pass without pacing delay.
	// Zero derives a burst from the effective budget.
	Burst int `env:"UPSTREAM_BURST" envDefault:"0"`

	// BreakerFailureThreshold is how many consecutive transient failures open the circuit.
	BreakerFailureThreshold uint32 `env:"UPSTREAM_BREAKER_FAILURE_THRESHOLD" envDefault:"5"`

	// BreakerCooldown is how long an open circuit waits before a half-open probe.
	BreakerCooldown time.Duration `env:"UPSTREAM_BREAKER_COOLDOWN" envDefault:"30s"`
}

// Sanitize applies guardrails to upstream client configuration values.
func (u *UpstreamConfig) Sanitize() {
	u.BaseURL = strings.TrimSpace(u.BaseURL)
	u.APIToken = strings.TrimSpace(u.APIToken)
	u.OAuthTokenURL = strings.TrimSpace(u.OAuthTokenURL)
	u.OAuthClientID = strings.TrimSpace(u.OAuthClientID)
	u.OAuthClientSecret = strings.TrimSpace(u.OAuthClientSecret)
	u.UserAgent = strings.TrimSpace(u.UserAgent)

	if u.Timeout <= 0 {
		u.Timeout = 30 * time.Second
	}
	if u.MaxRetries < 0 {
		u.MaxRetries = 0
	}
	if u.RetryBaseDelay <= 0 {
		u.RetryBaseDelay = 500 * time.Millisecond
	}
	if u.RetryMaxDelay < u.RetryBaseDelay {
		u.RetryMaxDelay = 10 * time.Second
	}

	// Clamp page size to the range upstream listing endpoints accept
	if u.PageSize < 1 {
		u.PageSize = 100
	}
	if u.PageSize > 500 {
		u.PageSize = 500
	}

	if u.HourlyQuota < 1 {
		u.HourlyQuota = 5000
	}
	if u.SafetyMargin <= 0 || u.SafetyMargin > 1 {
		u.SafetyMargin = 0.90
	}
	if u.Burst < 0 {
		u.Burst = 0
	}

	if u.BreakerFailureThreshold == 0 {
		u.BreakerFailureThreshold = 5
	}
	if u.BreakerCooldown <= 0 {
		u.BreakerCooldown = 30 * time.Second
	}
}

// HasOAuth reports whether the client-credentials flow is configured.
func (u *UpstreamConfig) HasOAuth() bool {
	return u.OAuthTokenURL != "" && u.OAuthClientID != ""
}

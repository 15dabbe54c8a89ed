package upstream

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/openbench/jurisync/internal/observability/statsd"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 10 * time.Second
	defaultPageSize       = 100
	maxErrorBodyBytes     = 2048
)

// OAuthConfig holds client-credentials settings for catalogs fronted by an
// OAuth2 token service.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Config describes one upstream catalog endpoint.
type Config struct {
	// BaseURL is the API root, e.g. https://api.example.org/api/v1.
	BaseURL string
	// APIToken authenticates with a static token when set. Ignored when
	// OAuth is configured.
	APIToken string
	// OAuth switches authentication to the client-credentials flow.
	OAuth *OAuthConfig
	// Timeout bounds each attempt, not the whole retry loop.
	Timeout time.Duration
	// MaxRetries bounds in-client retries for timeouts, network faults,
	// and 5xx. Throttling responses are never retried here; the job layer
	// owns that backoff.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// PageSize is the page_size query sent on first-page listing requests.
	PageSize  int
	UserAgent string

	Limiter *HourlyLimiter
	Breaker *Breaker
	Logger  *slog.Logger
	Metrics statsd.Sink

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the upstream legal-data catalog. Every request passes the
// circuit breaker, then the shared rate limiter, then goes on the wire.
// Safe for concurrent use by all sync workers.
type Client struct {
	baseURL    string
	apiToken   string
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	pageSize   int

	http    *http.Client
	limiter *HourlyLimiter
	breaker *Breaker
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewClient builds a catalog client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("upstream base url is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("upstream base url %q must be absolute", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}
	maxDelay := cfg.RetryMaxDelay
	if maxDelay < baseDelay {
		maxDelay = defaultRetryMaxDelay
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	if cfg.OAuth != nil {
		hc, err = wrapOAuth(hc, cfg.OAuth, timeout)
		if err != nil {
			return nil, err
		}
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewHourlyLimiter(LimiterConfig{Name: parsed.Host})
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = NewBreaker(BreakerConfig{Name: parsed.Host, Logger: cfg.Logger, Metrics: cfg.Metrics})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		apiToken:   strings.TrimSpace(cfg.APIToken),
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		maxRetries: retries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		pageSize:   pageSize,
		http:       hc,
		limiter:    limiter,
		breaker:    breaker,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// wrapOAuth layers a client-credentials token source over the transport.
// Token refresh reuses the inner client so test transports see the token
// exchange too.
func wrapOAuth(hc *http.Client, oc *OAuthConfig, timeout time.Duration) (*http.Client, error) {
	tokenURL := strings.TrimSpace(oc.TokenURL)
	if tokenURL == "" {
		return nil, errors.New("oauth token url is required")
	}
	if strings.TrimSpace(oc.ClientID) == "" {
		return nil, errors.New("oauth client id is required")
	}

	cc := clientcredentials.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       oc.Scopes,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)

	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &oauth2.Transport{Source: cc.TokenSource(tokenCtx), Base: base},
	}, nil
}

// Status is a point-in-time snapshot of the resilience stack for admin
// surfaces and the status endpoint.
type Status struct {
	Breaker     string
	Remaining   int
	Budget      int
	Utilization float64
	TimeToReset time.Duration
}

// Status reports the breaker state and the current rate window.
func (c *Client) Status() Status {
	return Status{
		Breaker:     c.breaker.State().String(),
		Remaining:   c.limiter.Remaining(),
		Budget:      c.limiter.Budget(),
		Utilization: c.limiter.Utilization(),
		TimeToReset: c.limiter.TimeToReset(),
	}
}

// getJSON runs a GET through the resilience stack and decodes the body.
func (c *Client) getJSON(ctx context.Context, endpoint, requestURL string, out any) error {
	body, err := c.get(ctx, endpoint, requestURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &PayloadError{URL: requestURL, Cause: err}
	}
	return nil
}

// get fetches a URL, retrying timeouts, network faults, and 5xx with capped
// jittered backoff. Throttling, open circuits, and permanent failures
// surface immediately.
func (c *Client) get(ctx context.Context, endpoint, requestURL string) ([]byte, error) {
	var lastErr error
	attempts := c.maxRetries + 1
	for attempt := range attempts {
		if attempt > 0 {
			if err := c.waitRetry(ctx, attempt); err != nil {
				return nil, err
			}
			c.logger.Debug("retrying upstream request",
				"endpoint", endpoint,
				"url", requestURL,
				"attempt", attempt+1,
			)
		}

		body, err := c.attempt(ctx, endpoint, requestURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryableInClient(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// attempt performs one breaker-gated, rate-limited request and reads the
// full body.
func (c *Client) attempt(ctx context.Context, endpoint, requestURL string) ([]byte, error) {
	start := time.Now()
	resp, err := c.breaker.Do(func() (*http.Response, error) {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		return c.roundTrip(ctx, requestURL)
	})
	c.observe(endpoint, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return readBody(resp)
}

// roundTrip sends one request and normalizes transport and status failures
// into the package error types.
func (c *Client) roundTrip(ctx context.Context, requestURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Token "+c.apiToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(requestURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newUpstreamError(requestURL, resp)
	}
	return resp, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		if closeErr != nil {
			return nil, errors.Join(
				fmt.Errorf("read upstream response: %w", readErr),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return nil, fmt.Errorf("read upstream response: %w", readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close response body: %w", closeErr)
	}
	return body, nil
}

// classifyTransportError turns deadline and dial failures into typed errors
// the retry and breaker layers can reason about.
func classifyTransportError(requestURL string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{URL: requestURL, Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: requestURL, Cause: err}
	}
	return fmt.Errorf("upstream request failed: %w", err)
}

// newUpstreamError captures the status, a body snippet for logs, and any
// Retry-After hint, then disposes of the response.
func newUpstreamError(requestURL string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return &UpstreamError{
		StatusCode: resp.StatusCode,
		URL:        requestURL,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		Body:       strings.TrimSpace(string(snippet)),
	}
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// retryableInClient limits local retries to faults an immediate retry can
// fix. Throttling surfaces so the job layer reschedules instead of burning
// budget, open circuits surface so callers back off, and permanent
// failures surface so nobody loops on them.
func retryableInClient(err error) bool {
	if IsRateLimited(err) {
		return false
	}
	var open *CircuitOpenError
	if errors.As(err, &open) {
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
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// waitRetry sleeps for the attempt's backoff or until the context ends.
func (c *Client) waitRetry(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.retryDelay(attempt))
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
	}
	return nil
}

// retryDelay doubles from the base delay per attempt, capped, plus jitter.
func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.baseDelay << (attempt - 1)
	if delay <= 0 || delay > c.maxDelay {
		delay = c.maxDelay
	}
	return delay + retryJitter(delay/4)
}

// retryJitter returns a random duration in [0, bound) so synchronized
// workers do not retry in lockstep. Returns 0 when entropy is unavailable.
func retryJitter(bound time.Duration) time.Duration {
	if bound <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	n := binary.BigEndian.Uint64(buf[:]) % uint64(bound)
	return time.Duration(int64(n)) // #nosec G115 - bounded by bound which is int64
}

func (c *Client) observe(endpoint string, elapsed time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	tags := map[string]string{"endpoint": endpoint, "result": requestResult(err)}
	c.metrics.Count("upstream.request", 1, tags)
	c.metrics.Timing("upstream.request.duration", elapsed, tags)
}

func requestResult(err error) string {
	var open *CircuitOpenError
	switch {
	case err == nil:
		return "success"
	case IsRateLimited(err):
		return "rate_limited"
	case errors.As(err, &open):
		return "rejected"
	case IsPermanent(err):
		return "permanent"
	default:
		return "transient"
	}
}

package upstream

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(t *testing.T, threshold uint32, cooldown time.Duration) *Breaker {
	t.Helper()
	return NewBreaker(BreakerConfig{
		Name:             "catalog",
		FailureThreshold: threshold,
		Cooldown:         cooldown,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func failWith(err error) func() (*http.Response, error) {
	return func() (*http.Response, error) { return nil, err }
}

func succeed() (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestBreakerOpensAfterConsecutiveServerFaults(t *testing.T) {
	breaker := newTestBreaker(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := breaker.Do(failWith(&UpstreamError{StatusCode: 502, URL: "http://example/courts/"}))
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	called := false
	_, err := breaker.Do(func() (*http.Response, error) {
		called = true
		return succeed()
	})
	require.Error(t, err)
	assert.False(t, called, "open circuit must reject without dialing")

	var open *CircuitOpenError
	require.ErrorAs(t, err, &open)
	assert.Equal(t, "catalog", open.Name)
	assert.True(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
}

func TestBreakerIgnoresThrottlingAndClientFaults(t *testing.T) {
	breaker := newTestBreaker(t, 2, time.Minute)

	harmless := []error{
		&RateLimitError{Name: "catalog", Wait: time.Minute},
		&UpstreamError{StatusCode: 429, URL: "http://example/judges/"},
		&UpstreamError{StatusCode: 404, URL: "http://example/judges/nope/"},
		&PayloadError{URL: "http://example/judges/", Cause: assert.AnError},
		context.Canceled,
	}
	for i := 0; i < 3; i++ {
		for _, cause := range harmless {
			_, err := breaker.Do(failWith(cause))
			require.Error(t, err)
			require.Equal(t, gobreaker.StateClosed, breaker.State())
		}
	}

	// Genuine server faults still trip it.
	for i := 0; i < 2; i++ {
		_, err := breaker.Do(failWith(&UpstreamError{StatusCode: 500, URL: "http://example/judges/"}))
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, breaker.State())
}

func TestBreakerTimeoutsAndNetworkFaultsCount(t *testing.T) {
	breaker := newTestBreaker(t, 2, time.Minute)

	_, err := breaker.Do(failWith(&TimeoutError{URL: "http://example/courts/", Cause: context.DeadlineExceeded}))
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())

	_, err = breaker.Do(failWith(assert.AnError))
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, breaker.State())
}

func TestBreakerHalfOpenProbeCloses(t *testing.T) {
	breaker := newTestBreaker(t, 1, 20*time.Millisecond)

	_, err := breaker.Do(failWith(&UpstreamError{StatusCode: 503, URL: "http://example/courts/"}))
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, breaker.State())

	time.Sleep(30 * time.Millisecond)

	resp, err := breaker.Do(succeed)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestBreakerHalfOpenProbeReopens(t *testing.T) {
	breaker := newTestBreaker(t, 1, 20*time.Millisecond)

	_, err := breaker.Do(failWith(&UpstreamError{StatusCode: 503, URL: "http://example/courts/"}))
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, breaker.State())

	time.Sleep(30 * time.Millisecond)

	_, err = breaker.Do(failWith(&UpstreamError{StatusCode: 503, URL: "http://example/courts/"}))
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, breaker.State())
}

func TestBreakerSuccessResetsConsecutiveFailures(t *testing.T) {
	breaker := newTestBreaker(t, 2, time.Minute)

	_, err := breaker.Do(failWith(&UpstreamError{StatusCode: 500, URL: "http://example/courts/"}))
	require.Error(t, err)

	_, err = breaker.Do(succeed)
	require.NoError(t, err)

	_, err = breaker.Do(failWith(&UpstreamError{StatusCode: 500, URL: "http://example/courts/"}))
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = NewTransientError(errors.New("upstream down"), 503)

func failN(t *testing.T, cb *CircuitBreaker, n int, err error) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
			return 0, err
		})
	}
}

func TestCircuitBreaker_PassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker("schools", DefaultCircuitBreakerConfig())
	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("trends", CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	failN(t, cb, 3, errUpstream)
	assert.Equal(t, CircuitOpen, cb.State())

	called := false
	_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("search", CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	failN(t, cb, 5, errors.New("400 bad request"))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker("comps", CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	failN(t, cb, 2, errUpstream)
	failN(t, cb, 1, nil)
	failN(t, cb, 2, errUpstream)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("details", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})
	cb.nowFunc = func() time.Time { return now }

	failN(t, cb, 1, errUpstream)
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(11 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	failN(t, cb, 1, nil)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("neighborhood", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})
	cb.nowFunc = func() time.Time { return now }

	failN(t, cb, 1, errUpstream)
	now = now.Add(11 * time.Second)
	failN(t, cb, 1, errUpstream)
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestBreakers_GetIsStable(t *testing.T) {
	b := NewBreakers(DefaultCircuitBreakerConfig())
	a := b.Get("search")
	assert.Same(t, a, b.Get("search"))
	assert.NotSame(t, a, b.Get("schools"))

	states := b.States()
	assert.Len(t, states, 2)
	assert.Equal(t, CircuitClosed, states["search"])
}

func TestFromConfig(t *testing.T) {
	r := FromRetryConfig(5, 200, 4000, 1500, 3, 0)
	assert.Equal(t, 5, r.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, r.InitialBackoff)
	assert.Equal(t, 4*time.Second, r.MaxBackoff)
	assert.Equal(t, 1500*time.Millisecond, r.RateLimitBackoff)
	assert.Equal(t, 3.0, r.Multiplier)

	d := FromRetryConfig(0, 0, 0, 0, 0, -1)
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, d.MaxAttempts)
	assert.Equal(t, DefaultRetryConfig().RateLimitBackoff, d.RateLimitBackoff)

	c := FromCircuitConfig(2, 9)
	assert.Equal(t, 2, c.FailureThreshold)
	assert.Equal(t, 9*time.Second, c.ResetTimeout)
}

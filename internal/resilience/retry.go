package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and
// server-directed waits.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, first try included.
	// Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps computed backoff. Server-directed waits are not capped.
	// Default: 30s.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction adds ±fraction of random jitter. Default: 0.
	JitterFraction float64

	// RateLimitBackoff is the minimum wait after a 429 when the server does
	// not say how long to wait. Default: 10s.
	RateLimitBackoff time.Duration

	// ShouldRetry overrides the transient check. If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt number,
	// the error and the chosen delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the upstream data provider policy: three
// attempts, 1s doubling backoff, 10s floor on rate limiting.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:      3,
		InitialBackoff:   time.Second,
		MaxBackoff:       30 * time.Second,
		Multiplier:       2.0,
		RateLimitBackoff: 10 * time.Second,
	}
}

// DoVal executes fn until it succeeds, returns a non-retryable error, the
// attempt budget is spent, or ctx is done.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := nextDelay(attempt, cfg, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	if cfg.RateLimitBackoff < 0 {
		cfg.RateLimitBackoff = 0
	}
	return cfg
}

// nextDelay picks the wait before the next attempt. A server-supplied
// Retry-After wins; a 429 without one waits at least RateLimitBackoff.
func nextDelay(attempt int, cfg RetryConfig, err error) time.Duration {
	delay := computeBackoff(attempt, cfg)

	var te *TransientError
	if !errors.As(err, &te) {
		return delay
	}
	if te.RetryAfter > 0 {
		return te.RetryAfter
	}
	if te.StatusCode == 429 && delay < cfg.RateLimitBackoff {
		return cfg.RateLimitBackoff
	}
	return delay
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		spread := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry.
func RetryLogger(service, operation string) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		zap.L().Warn("retrying upstream call",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
}

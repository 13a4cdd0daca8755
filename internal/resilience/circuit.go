// Package resilience provides retry and circuit breaking for calls to
// upstream data and generation providers.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the reset timeout passes.
	CircuitOpen
	// CircuitHalfOpen lets trial calls through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected by an open circuit.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive failure count that opens the
	// circuit. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open. Default: 30s.
	ResetTimeout time.Duration

	// ShouldTrip decides which errors count as failures. Defaults to
	// IsTransient so caller mistakes (4xx, validation) never open it.
	ShouldTrip func(err error) bool
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

// CircuitBreaker guards a single upstream operation.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time

	nowFunc func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = IsTransient
	}
	return &CircuitBreaker{name: name, cfg: cfg, nowFunc: time.Now}
}

// ExecuteVal runs fn unless the circuit is open.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	cb.record(err)
	return val, err
}

// State returns the current state, reporting half-open once an open
// circuit's reset timeout has passed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.nowFunc().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != CircuitOpen {
		return nil
	}
	if cb.nowFunc().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.transition(CircuitHalfOpen)
		return nil
	}
	return eris.Wrapf(ErrCircuitOpen, "circuit %s", cb.name)
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil || !cb.cfg.ShouldTrip(err) {
		cb.failures = 0
		if cb.state == CircuitHalfOpen {
			cb.transition(CircuitClosed)
		}
		return
	}

	cb.failures++
	switch {
	case cb.state == CircuitHalfOpen:
		cb.openedAt = cb.nowFunc()
		cb.transition(CircuitOpen)
	case cb.state == CircuitClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.openedAt = cb.nowFunc()
		cb.transition(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	zap.L().Info("circuit state change",
		zap.String("circuit", cb.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}

// Breakers hands out one circuit breaker per upstream operation.
type Breakers struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakers creates an empty registry.
func NewBreakers(cfg CircuitBreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for name, creating it on first use.
func (b *Breakers) Get(name string) *CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(name, b.cfg)
		b.breakers[name] = cb
	}
	return cb
}

// States returns a snapshot of every breaker's state.
func (b *Breakers) States() map[string]CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]CircuitState, len(b.breakers))
	for name, cb := range b.breakers {
		out[name] = cb.State()
	}
	return out
}

// Package cost attributes text generation spend to pipeline runs.
package cost

import "sync"

// Rates holds per-model pricing.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Calculator computes costs for generation calls.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of one call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
	}
}

// Ledger accumulates usage across the calls of one run. Safe for
// concurrent use.
type Ledger struct {
	calc *Calculator

	mu     sync.Mutex
	calls  int
	tokens int
	usd    float64
}

// NewLedger creates an empty ledger priced by calc. A nil calc records
// tokens only.
func NewLedger(calc *Calculator) *Ledger {
	return &Ledger{calc: calc}
}

// Add records one call.
func (l *Ledger) Add(model string, input, output, cacheWrite, cacheRead int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.tokens += input + output + cacheWrite + cacheRead
	if l.calc != nil {
		l.usd += l.calc.Claude(model, input, output, cacheWrite, cacheRead)
	}
}

// Totals returns the call count, total tokens and USD spent so far.
func (l *Ledger) Totals() (calls, tokens int, usd float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls, l.tokens, l.usd
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-advisor/internal/cost"
	"github.com/sells-group/property-advisor/pkg/anthropic"
)

// ParseOutcome says how a structured generation result was obtained.
type ParseOutcome string

const (
	// OutcomeParsed means the generated text parsed as expected.
	OutcomeParsed ParseOutcome = "parsed"
	// OutcomeParseFallback means generation succeeded but the text did not
	// parse, so the deterministic fallback was used.
	OutcomeParseFallback ParseOutcome = "parse_fallback"
	// OutcomeGenerationFallback means the generation call itself failed and
	// the deterministic fallback was used.
	OutcomeGenerationFallback ParseOutcome = "generation_fallback"
)

// ParseError reports generated text that did not match the requested
// structure. It is always recovered with a fallback.
type ParseError struct {
	Purpose string
	Raw     string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pipeline: parse %s output: %v", e.Purpose, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// generation is one call to the text generation collaborator.
type generation struct {
	purpose     string
	system      string
	user        string
	temperature float64
	maxTokens   int64
}

// generator issues generation calls with a per-call timeout and records
// token usage on the run's ledger.
type generator struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	ledger  *cost.Ledger
	metrics *Metrics
}

func (g *generator) generate(ctx context.Context, req generation) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temp := req.temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   req.maxTokens,
		System:      req.system,
		Messages:    []anthropic.Message{{Role: "user", Content: req.user}},
		Temperature: &temp,
	})
	if err != nil {
		g.metrics.Generations.WithLabelValues(req.purpose, "error").Inc()
		return "", eris.Wrapf(err, "pipeline: generate %s", req.purpose)
	}

	resp.Usage.LogUsage(g.model, req.purpose)
	g.ledger.Add(g.model,
		int(resp.Usage.InputTokens),
		int(resp.Usage.OutputTokens),
		int(resp.Usage.CacheCreationInputTokens),
		int(resp.Usage.CacheReadInputTokens),
	)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		g.metrics.Generations.WithLabelValues(req.purpose, "empty").Inc()
		return "", eris.Errorf("pipeline: generate %s: empty response", req.purpose)
	}
	g.metrics.Generations.WithLabelValues(req.purpose, "ok").Inc()
	zap.L().Debug("pipeline: generation complete",
		zap.String("purpose", req.purpose),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

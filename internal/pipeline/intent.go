package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/property-advisor/internal/model"
)

const intentSystemPrompt = `You are a real estate search assistant. Extract structured search criteria from user queries.

Output JSON with these fields (all optional except confidence):
{
    "location": "City, State or ZIP",
    "min_price": integer,
    "max_price": integer,
    "bedrooms": integer,
    "bathrooms": float,
    "property_type": "house|condo|townhouse|apartment",
    "confidence": "high|medium|low"
}

Rules:
- Only include fields mentioned or clearly implied
- Use null for missing information
- Set confidence based on query clarity
- For vague terms like "affordable", use confidence: "low"
- Use the conversation so far to resolve references like "there" or "cheaper"

Examples:
"3 bedroom house in Austin under 600k" ->
{"location": "Austin, TX", "max_price": 600000, "bedrooms": 3, "property_type": "house", "confidence": "high"}

"Something affordable in the suburbs" ->
{"confidence": "low"}

Return ONLY the JSON object.`

const (
	intentTemperature = 0.3
	intentMaxTokens   = 500
	maxHistoryTurns   = 10
)

// Clarification questions.
const (
	questionLocation      = "I'd be happy to help you search for properties! What location are you interested in?"
	questionLowConfidence = "I want to make sure I understand what you're looking for. Could you tell me more about: the location, your budget range, and how many bedrooms you need?"
	questionGeneric       = "Could you provide more details about what you're looking for?"
)

// intentJSON mirrors the extraction contract. Numbers are decoded as
// floats so "600000.0" and 600000 both parse.
type intentJSON struct {
	Location     *string  `json:"location"`
	MinPrice     *float64 `json:"min_price"`
	MaxPrice     *float64 `json:"max_price"`
	Bedrooms     *float64 `json:"bedrooms"`
	Bathrooms    *float64 `json:"bathrooms"`
	PropertyType *string  `json:"property_type"`
	Confidence   *string  `json:"confidence"`
}

// extractIntent turns a free-text request into SearchCriteria. It never
// fails: unparseable output or a failed call yields low-confidence
// criteria, which routes the request to clarification.
func (p *Pipeline) extractIntent(ctx context.Context, gen *generator, req Request) (model.SearchCriteria, ParseOutcome, error) {
	text, err := gen.generate(ctx, generation{
		purpose:     "intent",
		system:      intentSystemPrompt,
		user:        intentUserMessage(req.Query, req.History),
		temperature: intentTemperature,
		maxTokens:   intentMaxTokens,
	})
	if err != nil {
		zap.L().Warn("pipeline: intent generation failed, asking for clarification", zap.Error(err))
		return lowConfidence(req.Income), OutcomeGenerationFallback, err
	}

	criteria, err := parseIntent(text)
	if err != nil {
		zap.L().Warn("pipeline: intent output did not parse", zap.Error(err))
		return lowConfidence(req.Income), OutcomeParseFallback, err
	}
	criteria.AnnualIncome = req.Income
	return criteria, OutcomeParsed, nil
}

func lowConfidence(income float64) model.SearchCriteria {
	return model.SearchCriteria{Confidence: model.ConfidenceLow, AnnualIncome: income}
}

func intentUserMessage(query string, history []model.Turn) string {
	var b strings.Builder
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, strings.TrimSpace(t.Content))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Extract search criteria from: '%s'", query)
	return b.String()
}

func parseIntent(text string) (model.SearchCriteria, error) {
	var raw intentJSON
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		return model.SearchCriteria{}, &ParseError{Purpose: "intent", Raw: text, Err: err}
	}

	c := model.SearchCriteria{Confidence: model.ConfidenceMedium}
	if raw.Confidence != nil {
		if conf, ok := model.ParseConfidence(*raw.Confidence); ok {
			c.Confidence = conf
		} else {
			zap.L().Debug("pipeline: unknown confidence tag, using medium", zap.String("confidence", *raw.Confidence))
		}
	}
	if raw.Location != nil {
		c.Location = strings.TrimSpace(*raw.Location)
	}
	if raw.PropertyType != nil {
		c.PropertyType = strings.ToLower(strings.TrimSpace(*raw.PropertyType))
	}
	c.MinPrice = positiveInt(raw.MinPrice)
	c.MaxPrice = positiveInt(raw.MaxPrice)
	c.Bedrooms = positiveInt(raw.Bedrooms)
	if raw.Bathrooms != nil && *raw.Bathrooms > 0 {
		c.Bathrooms = *raw.Bathrooms
	}
	return c, nil
}

func positiveInt(v *float64) int {
	if v == nil || *v <= 0 {
		return 0
	}
	return int(math.Round(*v))
}

// NeedsClarification reports whether the criteria are too thin to search:
// low confidence, no location, or no populated search field.
func NeedsClarification(c model.SearchCriteria) bool {
	return c.Confidence == model.ConfidenceLow ||
		strings.TrimSpace(c.Location) == "" ||
		c.PopulatedFields() == 0
}

// ClarificationQuestion returns the single follow-up question for c.
func ClarificationQuestion(c model.SearchCriteria) string {
	switch {
	case strings.TrimSpace(c.Location) == "":
		return questionLocation
	case c.Confidence == model.ConfidenceLow:
		return questionLowConfidence
	default:
		return questionGeneric
	}
}

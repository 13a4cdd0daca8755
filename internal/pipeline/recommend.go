package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/property-advisor/internal/model"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

const explanationSystemPrompt = `You are a real estate advisor. Generate a concise, helpful explanation for why this property is recommended.

Be specific about:
- Price and value
- Location
- Schools (if available)
- Market trends
- Overall fit for the buyer

Keep it to 2-3 sentences. Be honest about any concerns.`

const narrativeSystemPrompt = `You are a friendly real estate assistant. Generate a natural, conversational response summarizing property recommendations.

Structure:
1. Brief greeting and summary of what you found
2. Highlight the top properties with key points
3. Offer to provide more details or refine search

Be conversational, helpful, and specific. Mention prices, locations, and key features.`

const (
	explanationTemperature = 0.6
	explanationMaxTokens   = 300
	narrativeTemperature   = 0.7
	narrativeMaxTokens     = 500
)

const msgAnalysisIncomplete = "I found some properties, but couldn't complete the analysis. Please try again."

// recommend scores every analyzed listing, ranks them and writes the
// overall narrative.
func (p *Pipeline) recommend(ctx context.Context, gen *generator, state *model.PipelineState) ([]model.Recommendation, string) {
	criteria := model.SearchCriteria{}
	if state.Criteria != nil {
		criteria = *state.Criteria
	}

	recs := make([]model.Recommendation, 0, len(state.Analyses))
	for _, l := range state.AnalyzedListings() {
		a := state.Analyses[l.ID]
		score := Score(l, a, criteria)
		recs = append(recs, model.Recommendation{
			ListingID:   l.ID,
			Address:     l.Address,
			Price:       l.Price,
			Bedrooms:    l.Bedrooms,
			Bathrooms:   l.Bathrooms,
			Score:       score,
			Explanation: p.explain(ctx, gen, l, a, score),
			Highlights:  Highlights(a),
		})
	}

	Rank(recs)
	return recs, p.narrate(ctx, gen, state.Query, len(state.Listings), recs)
}

// Rank sorts recommendations by score, highest first. Equal scores keep
// retrieval order.
func Rank(recs []model.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
}

func (p *Pipeline) explain(ctx context.Context, gen *generator, l realestate.Listing, a model.AnalysisRecord, score float64) string {
	text, err := gen.generate(ctx, generation{
		purpose:     "explanation",
		system:      explanationSystemPrompt,
		user:        explanationUserMessage(l, a, score),
		temperature: explanationTemperature,
		maxTokens:   explanationMaxTokens,
	})
	if err != nil {
		zap.L().Warn("pipeline: explanation generation failed, using fallback",
			zap.String("listing_id", l.ID), zap.Error(err))
		return fallbackExplanation(l, score)
	}
	return text
}

func fallbackExplanation(l realestate.Listing, score float64) string {
	return message.NewPrinter(language.English).
		Sprintf("This property at %s matches your criteria with a score of %.1f/100.", l.Address, score)
}

func explanationUserMessage(l realestate.Listing, a model.AnalysisRecord, score float64) string {
	pr := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString(pr.Sprintf("Property: %s\n", l.Address))
	b.WriteString(pr.Sprintf("Price: $%d\n", l.Price))
	b.WriteString(pr.Sprintf("Bedrooms: %d\n", l.Bedrooms))
	b.WriteString(pr.Sprintf("Bathrooms: %v\n\n", l.Bathrooms))
	b.WriteString(pr.Sprintf("Recommendation Score: %.1f/100\n\n", score))

	b.WriteString("Analysis Summary:\n")
	b.WriteString(a.Summary.Overall + "\n")
	if len(a.Summary.Pros) > 0 {
		b.WriteString("Pros: " + strings.Join(a.Summary.Pros, "; ") + "\n")
	}
	if len(a.Summary.Cons) > 0 {
		b.WriteString("Cons: " + strings.Join(a.Summary.Cons, "; ") + "\n")
	}

	b.WriteString(pr.Sprintf("\nSchools: %d nearby\n", len(a.Schools)))
	if mt := a.MarketTrends; mt != nil {
		b.WriteString(pr.Sprintf("Market Trends: %s, price change %.1f%%, %.0f days on market\n",
			mt.TrendDirection, mt.PriceChangePercent, mt.DaysOnMarketAvg))
	} else {
		b.WriteString("Market Trends: not available\n")
	}
	if af := a.Affordability; af != nil {
		b.WriteString(pr.Sprintf("Affordability: %s (monthly payment $%.2f)\n", af.Recommendation, af.MonthlyPayment))
	}
	return b.String()
}

// narrate writes the overall response from the top recommendations.
func (p *Pipeline) narrate(ctx context.Context, gen *generator, query string, found int, recs []model.Recommendation) string {
	if len(recs) == 0 {
		return msgAnalysisIncomplete
	}

	top := recs
	if len(top) > p.narrativeTopN {
		top = top[:p.narrativeTopN]
	}
	topJSON, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		zap.L().Warn("pipeline: marshal top recommendations", zap.Error(err))
		return fallbackNarrative(recs)
	}

	pr := message.NewPrinter(language.English)
	user := pr.Sprintf("User Query: %s\n\nFound %d properties matching criteria.\n\nTop Recommendations:\n%s\n",
		query, found, string(topJSON))

	text, err := gen.generate(ctx, generation{
		purpose:     "narrative",
		system:      narrativeSystemPrompt,
		user:        user,
		temperature: narrativeTemperature,
		maxTokens:   narrativeMaxTokens,
	})
	if err != nil {
		zap.L().Warn("pipeline: narrative generation failed, using fallback", zap.Error(err))
		return fallbackNarrative(recs)
	}
	return text
}

func fallbackNarrative(recs []model.Recommendation) string {
	top := recs[0]
	return message.NewPrinter(language.English).Sprintf(
		"I found %d properties that match your criteria. The top recommendation is %s at $%d with a score of %.1f/100. %s",
		len(recs), top.Address, top.Price, top.Score, top.Explanation)
}

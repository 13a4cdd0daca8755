package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/property-advisor/internal/model"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

const summarySystemPrompt = `You are a real estate analyst. Generate a concise pros/cons analysis.

IMPORTANT: You MUST respond with ONLY valid JSON. Do not include any markdown formatting, code blocks, or explanatory text. Return ONLY the JSON object.

Required JSON format:
{
    "pros": ["list", "of", "positive", "aspects"],
    "cons": ["list", "of", "concerns"],
    "overall": "brief overall assessment"
}

Focus on: location, price, schools, market trends, neighborhood quality.

Return ONLY the JSON object, nothing else.`

const (
	summaryTemperature = 0.5
	summaryMaxTokens   = 800
)

// summarize asks for a pros/cons summary and falls back to one built from
// the analysis when generation or parsing fails.
func (p *Pipeline) summarize(ctx context.Context, gen *generator, l realestate.Listing, rec model.AnalysisRecord) (model.Summary, ParseOutcome) {
	text, err := gen.generate(ctx, generation{
		purpose:     "summary",
		system:      summarySystemPrompt,
		user:        summaryUserMessage(l, rec),
		temperature: summaryTemperature,
		maxTokens:   summaryMaxTokens,
	})
	if err != nil {
		zap.L().Warn("pipeline: summary generation failed, using fallback",
			zap.String("listing_id", l.ID), zap.Error(err))
		return fallbackSummary(l, rec), OutcomeGenerationFallback
	}

	s, err := parseSummary(text)
	if err != nil {
		zap.L().Warn("pipeline: summary output did not parse, using fallback",
			zap.String("listing_id", l.ID), zap.Error(err))
		return fallbackSummary(l, rec), OutcomeParseFallback
	}
	return s, OutcomeParsed
}

func parseSummary(text string) (model.Summary, error) {
	var s model.Summary
	if err := json.Unmarshal([]byte(cleanJSON(text)), &s); err != nil {
		return model.Summary{}, &ParseError{Purpose: "summary", Raw: text, Err: err}
	}
	s.Overall = strings.TrimSpace(s.Overall)
	if s.Overall == "" && len(s.Pros) == 0 && len(s.Cons) == 0 {
		return model.Summary{}, &ParseError{Purpose: "summary", Raw: text, Err: eris.New("no pros, cons or overall")}
	}
	if s.Pros == nil {
		s.Pros = []string{}
	}
	if s.Cons == nil {
		s.Cons = []string{}
	}
	return s, nil
}

func summaryUserMessage(l realestate.Listing, rec model.AnalysisRecord) string {
	pr := message.NewPrinter(language.English)

	neighborhood := "Not available"
	if nb := rec.Neighborhood; nb != nil {
		neighborhood = "Available"
		if nb.Demographics.Population > 0 {
			neighborhood += pr.Sprintf(" Demographics: Population %d, Median Income $%.0f",
				nb.Demographics.Population, nb.Demographics.MedianIncome)
		}
		if nb.OverallScore > 0 {
			neighborhood += pr.Sprintf(", Overall Score: %.1f/100", nb.OverallScore)
		}
	}

	schools := "No school data available"
	if len(rec.Schools) > 0 {
		schools = pr.Sprintf("%d schools found", len(rec.Schools))
	}

	trends := "Not available"
	if mt := rec.MarketTrends; mt != nil {
		trends = pr.Sprintf("Available Market: %s trend, Median Price $%.0f, Price Change %.1f%%",
			mt.TrendDirection, mt.MedianPrice, mt.PriceChangePercent)
	}

	var b strings.Builder
	b.WriteString(pr.Sprintf("Property: %s\n", l.Address))
	b.WriteString(pr.Sprintf("Price: $%d\n", l.Price))
	b.WriteString(pr.Sprintf("Bedrooms: %d\n", l.Bedrooms))
	b.WriteString(pr.Sprintf("Bathrooms: %v\n", l.Bathrooms))
	b.WriteString(pr.Sprintf("Square Feet: %d\n", l.SquareFeet))
	b.WriteString(pr.Sprintf("Property Type: %s\n\n", l.PropertyType))
	b.WriteString("Analysis Data Available:\n")
	b.WriteString("- Neighborhood: " + neighborhood + "\n")
	b.WriteString("- Schools: " + schools + "\n")
	b.WriteString("- Market Trends: " + trends + "\n")
	if len(rec.ComparableSales) > 0 {
		b.WriteString(pr.Sprintf("- Comparable Sales: %d recent sales nearby\n", len(rec.ComparableSales)))
	}
	if a := rec.Affordability; a != nil {
		b.WriteString(pr.Sprintf("- Affordability: monthly payment $%.2f, debt-to-income %.1f%%\n",
			a.MonthlyPayment, a.DebtToIncomeRatio))
	}
	b.WriteString("\nGenerate a comprehensive analysis focusing on what data IS available. ")
	b.WriteString("If market data is limited, focus on property value, size, location, and general market context.")
	return b.String()
}

// fallbackSummary derives a summary from listing fundamentals and the
// presence of each analysis field. It cannot fail.
func fallbackSummary(l realestate.Listing, rec model.AnalysisRecord) model.Summary {
	pr := message.NewPrinter(language.English)
	pros := []string{}
	cons := []string{}

	if l.Price > 0 {
		if l.SquareFeet > 0 {
			perSqft := float64(l.Price) / float64(l.SquareFeet)
			verdict := "Premium pricing"
			if perSqft < 200 {
				verdict = "Good value"
			}
			pros = append(pros, pr.Sprintf("Price per sqft: $%.0f - %s", perSqft, verdict))
		}
		pros = append(pros, pr.Sprintf("Listed at $%d", l.Price))
	}
	if l.SquareFeet > 0 {
		size := "Average size"
		switch {
		case l.SquareFeet > 2000:
			size = "Spacious"
		case l.SquareFeet < 1500:
			size = "Compact"
		}
		pros = append(pros, pr.Sprintf("%d sqft - %s", l.SquareFeet, size))
	}
	if l.Bedrooms >= 3 {
		pros = append(pros, pr.Sprintf("%d bedrooms - Good for families", l.Bedrooms))
	}
	if l.Bathrooms >= 2 {
		pros = append(pros, pr.Sprintf("%v bathrooms - Convenient", l.Bathrooms))
	}

	if rec.Neighborhood == nil {
		cons = append(cons, "Neighborhood demographics and safety data unavailable")
	}
	if len(rec.Schools) == 0 {
		cons = append(cons, "School ratings and information unavailable")
	}
	if rec.MarketTrends == nil {
		cons = append(cons, "Market trends and price history unavailable")
	}

	kind := "Property"
	if t := strings.TrimSpace(l.PropertyType); t != "" {
		kind = cases.Title(language.English).String(t)
	}

	var overall string
	if len(pros) > len(cons) {
		overall = pr.Sprintf("%s appears to be a solid option with %d bedrooms and %d sqft. "+
			"Limited market analysis data available, but property fundamentals look good.", kind, l.Bedrooms, l.SquareFeet)
	} else {
		overall = pr.Sprintf("%s available at $%d. Market analysis data is limited, "+
			"so additional research is recommended before making a decision.", kind, l.Price)
	}

	if len(pros) == 0 {
		pros = append(pros, "Property matches search criteria")
	}
	if len(cons) == 0 {
		cons = append(cons, "Additional market data would be helpful")
	}
	return model.Summary{Pros: pros, Cons: cons, Overall: overall}
}

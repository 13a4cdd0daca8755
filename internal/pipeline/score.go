package pipeline

import (
	"fmt"

	"github.com/sells-group/property-advisor/internal/model"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

// Scoring weights. Every listing starts at baseScore.
const (
	baseScore           = 50.0
	withinMaxPriceBonus = 10.0
	aboveMinPriceBonus  = 10.0
	overBudgetPenalty   = 15.0
	overBudgetTolerance = 1.1
	bedroomsBonus       = 10.0
	bedroomsPenalty     = 10.0
	affordableBonus     = 15.0
	unaffordablePenalty = 10.0
	excellentSchools    = 8.0
	excellentSchoolsAdd = 10.0
	goodSchools         = 7.0
	goodSchoolsAdd      = 5.0
	appreciatingBonus   = 5.0
)

// ScoreBreakdown holds the contribution of each scoring dimension and the
// clamped final score.
type ScoreBreakdown struct {
	Base          float64 `json:"base"`
	Price         float64 `json:"price"`
	Bedrooms      float64 `json:"bedrooms"`
	Affordability float64 `json:"affordability"`
	Schools       float64 `json:"schools"`
	Market        float64 `json:"market"`
	Final         float64 `json:"final"`
}

// Score rates how well a listing fits the criteria on a 0-100 scale. It is
// a pure function of its inputs.
func Score(l realestate.Listing, a model.AnalysisRecord, c model.SearchCriteria) float64 {
	return scoreBreakdown(l, a, c).Final
}

func scoreBreakdown(l realestate.Listing, a model.AnalysisRecord, c model.SearchCriteria) ScoreBreakdown {
	b := ScoreBreakdown{Base: baseScore}

	if c.MaxPrice > 0 && l.Price <= c.MaxPrice {
		b.Price += withinMaxPriceBonus
	}
	if c.MinPrice > 0 && l.Price >= c.MinPrice {
		b.Price += aboveMinPriceBonus
	}
	if c.MaxPrice > 0 && float64(l.Price) > float64(c.MaxPrice)*overBudgetTolerance {
		b.Price -= overBudgetPenalty
	}

	if c.Bedrooms > 0 {
		if l.Bedrooms >= c.Bedrooms {
			b.Bedrooms += bedroomsBonus
		} else {
			b.Bedrooms -= bedroomsPenalty
		}
	}

	if a.Affordability != nil {
		if a.Affordability.Affordable {
			b.Affordability += affordableBonus
		} else {
			b.Affordability -= unaffordablePenalty
		}
	}

	if mean, ok := a.MeanSchoolRating(); ok {
		switch {
		case mean >= excellentSchools:
			b.Schools += excellentSchoolsAdd
		case mean >= goodSchools:
			b.Schools += goodSchoolsAdd
		}
	}

	if a.MarketTrends != nil && a.MarketTrends.PriceChangePercent > 0 {
		b.Market += appreciatingBonus
	}

	b.Final = clampScore(b.Base + b.Price + b.Bedrooms + b.Affordability + b.Schools + b.Market)
	return b
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Highlights returns short tags for the strongest points of an analysis.
func Highlights(a model.AnalysisRecord) []string {
	out := []string{}
	if a.Affordability != nil && a.Affordability.Affordable {
		out = append(out, "Within your budget")
	}
	highlyRated := 0
	for _, s := range a.Schools {
		if s.Rating >= excellentSchools {
			highlyRated++
		}
	}
	if highlyRated > 0 {
		noun := "schools"
		if highlyRated == 1 {
			noun = "school"
		}
		out = append(out, fmt.Sprintf("%d highly-rated %s nearby", highlyRated, noun))
	}
	if a.MarketTrends != nil && a.MarketTrends.PriceChangePercent > 0 {
		out = append(out, "Appreciating market")
	}
	return out
}

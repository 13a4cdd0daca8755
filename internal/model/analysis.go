package model

import "github.com/sells-group/property-advisor/pkg/realestate"

// Summary is the pros/cons assessment of one listing.
type Summary struct {
	Pros    []string `json:"pros" yaml:"pros"`
	Cons    []string `json:"cons" yaml:"cons"`
	Overall string   `json:"overall" yaml:"overall"`
}

// AnalysisRecord holds everything derived for one listing. Nil or empty
// fields mean that lookup failed or did not apply.
type AnalysisRecord struct {
	ListingID       string                        `json:"listing_id" yaml:"listing_id"`
	Address         string                        `json:"address" yaml:"address"`
	Neighborhood    *realestate.NeighborhoodStats `json:"neighborhood" yaml:"neighborhood"`
	Schools         []realestate.SchoolRating     `json:"schools" yaml:"schools"`
	MarketTrends    *realestate.MarketTrends      `json:"market_trends" yaml:"market_trends"`
	ComparableSales []realestate.ComparableSale   `json:"comparable_sales" yaml:"comparable_sales"`
	Affordability   *realestate.Affordability     `json:"affordability,omitempty" yaml:"affordability,omitempty"`
	Summary         Summary                       `json:"summary" yaml:"summary"`
	// SummarySource records whether Summary came from generation or from
	// the deterministic fallback.
	SummarySource string `json:"summary_source" yaml:"summary_source"`
}

// MeanSchoolRating returns the average rating and whether any school was
// rated.
func (a AnalysisRecord) MeanSchoolRating() (float64, bool) {
	if len(a.Schools) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range a.Schools {
		sum += s.Rating
	}
	return sum / float64(len(a.Schools)), true
}

// Recommendation is the ranked output for one listing.
type Recommendation struct {
	ListingID   string   `json:"listing_id" yaml:"listing_id"`
	Address     string   `json:"address" yaml:"address"`
	Price       int      `json:"price" yaml:"price"`
	Bedrooms    int      `json:"bedrooms" yaml:"bedrooms"`
	Bathrooms   float64  `json:"bathrooms" yaml:"bathrooms"`
	Score       float64  `json:"score" yaml:"score"`
	Explanation string   `json:"explanation" yaml:"explanation"`
	Highlights  []string `json:"highlights" yaml:"highlights"`
}

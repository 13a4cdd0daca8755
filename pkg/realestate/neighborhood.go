package realestate

import (
	"context"
	"net/url"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// neutralScore is the default for any 0-100 score the provider omits.
const neutralScore = 50.0

// addressEndpoint serves property-level info for an address, including
// neighborhood scores and nearby schools.
const addressEndpoint = "By Property Address"

// Demographics summarizes the population of an area.
type Demographics struct {
	Population    int     `json:"population" yaml:"population"`
	MedianAge     float64 `json:"median_age" yaml:"median_age"`
	MedianIncome  float64 `json:"median_income" yaml:"median_income"`
	HouseholdSize float64 `json:"household_size" yaml:"household_size"`
}

// NeighborhoodStats holds scores on a 0-100 scale.
type NeighborhoodStats struct {
	Location         string       `json:"location" yaml:"location"`
	Demographics     Demographics `json:"demographics" yaml:"demographics"`
	CrimeScore       float64      `json:"crime_score" yaml:"crime_score"`
	WalkabilityScore float64      `json:"walkability_score" yaml:"walkability_score"`
	OverallScore     float64      `json:"overall_score" yaml:"overall_score"`
	// Degraded is set when every value is a neutral default, either because
	// the provider refused the input or because no score field was present.
	Degraded         bool         `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

var (
	demographicsPaths = []string{"demographics", "data.demographics", "property.demographics"}
	populationPaths   = []string{"population", "populationCount"}
	medianAgePaths    = []string{"medianAge", "age"}
	medianIncomePaths = []string{"medianIncome", "income"}
	householdPaths    = []string{"householdSize", "household_size"}

	crimeScorePaths = []string{"crimeScore", "crime_score", "data.crimeScore", "property.crimeScore"}
	walkScorePaths  = []string{"walkScore", "walk_score", "walkability", "data.walkScore", "property.walkScore"}
)

func neutralNeighborhood(location string) NeighborhoodStats {
	return NeighborhoodStats{
		Location:         location,
		CrimeScore:       neutralScore,
		WalkabilityScore: neutralScore,
		OverallScore:     neutralScore,
		Degraded:         true,
	}
}

func (c *client) NeighborhoodStats(ctx context.Context, location string) (*NeighborhoodStats, error) {
	loc, err := validateLocation(location)
	if err != nil {
		return nil, err
	}

	stats, err := cached(c, "neighborhood", map[string]string{"location": loc}, c.ttls.Long, func() (NeighborhoodStats, bool, error) {
		doc, err := c.get(ctx, "neighborhood", addressEndpoint, url.Values{"address": {loc}})
		if isNarrowInput(err) {
			zap.L().Warn("realestate: neighborhood needs a specific address, using neutral scores",
				zap.String("location", loc))
			return neutralNeighborhood(loc), true, nil
		}
		if err != nil {
			return NeighborhoodStats{}, false, err
		}
		stats := parseNeighborhood(loc, doc)
		if stats.Degraded {
			zap.L().Warn("realestate: neighborhood response had no scores, using neutral scores",
				zap.String("location", loc))
		}
		return stats, stats.Degraded, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func parseNeighborhood(location string, doc gjson.Result) NeighborhoodStats {
	if !anyPresent(doc, crimeScorePaths, walkScorePaths, demographicsPaths) {
		return neutralNeighborhood(location)
	}

	var demo Demographics
	if d, ok := firstObject(doc, demographicsPaths); ok {
		demo = Demographics{
			Population:    firstInt(d, 0, populationPaths),
			MedianAge:     firstFloat(d, 0, medianAgePaths),
			MedianIncome:  firstFloat(d, 0, medianIncomePaths),
			HouseholdSize: firstFloat(d, 0, householdPaths),
		}
	}

	crime := clamp(firstFloat(doc, neutralScore, crimeScorePaths), 0, 100)
	walk := clamp(firstFloat(doc, neutralScore, walkScorePaths), 0, 100)
	return NeighborhoodStats{
		Location:         location,
		Demographics:     demo,
		CrimeScore:       crime,
		WalkabilityScore: walk,
		OverallScore:     clamp(crime*0.4+walk*0.6, 0, 100),
	}
}

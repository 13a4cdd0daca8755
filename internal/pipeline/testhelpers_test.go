package pipeline

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-advisor/internal/config"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

const testModel = "claude-haiku-4-5-20251001"

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{Model: testModel},
		Pipeline: config.PipelineConfig{
			AnalyzeLimit:       5,
			NarrativeTopN:      3,
			AnalyzeConcurrency: 1,
			CallTimeoutSecs:    5,
		},
	}
}

func testListings() []realestate.Listing {
	return []realestate.Listing{
		{
			ID: "1001", Address: "100 Oak St, Austin, TX 78701", City: "Austin", State: "TX", ZipCode: "78701",
			Price: 550000, Bedrooms: 3, Bathrooms: 2, SquareFeet: 2200, PropertyType: "house",
		},
		{
			ID: "1002", Address: "200 Elm St, Austin, TX 78702", City: "Austin", State: "TX", ZipCode: "78702",
			Price: 700000, Bedrooms: 2, Bathrooms: 2, SquareFeet: 1800, PropertyType: "house",
		},
	}
}

// stubAnalysisData answers every per-listing lookup with healthy data.
func stubAnalysisData(data *mockDataClient) {
	data.On("NeighborhoodStats", mock.Anything, mock.Anything).Return(&realestate.NeighborhoodStats{
		CrimeScore: 70, WalkabilityScore: 60, OverallScore: 64,
	}, nil).Maybe()
	data.On("SchoolRatings", mock.Anything, mock.Anything, schoolRadiusMiles).Return([]realestate.SchoolRating{
		{Name: "Oak Elementary", Type: "elementary", Rating: 9},
		{Name: "Elm Middle", Type: "middle", Rating: 8},
	}, nil).Maybe()
	data.On("MarketTrends", mock.Anything, mock.Anything, trendTimeframe).Return(&realestate.MarketTrends{
		PriceChangePercent: 3.5, TrendDirection: realestate.TrendUp, DaysOnMarketAvg: 25,
	}, nil).Maybe()
	data.On("ComparableSales", mock.Anything, mock.Anything, mock.Anything).
		Return([]realestate.ComparableSale{}, nil).Maybe()
	data.On("Affordability", mock.Anything, affordabilityFor(550000)).
		Return(&realestate.Affordability{Affordable: true, MonthlyPayment: 3100}, nil).Maybe()
	data.On("Affordability", mock.Anything, affordabilityFor(700000)).
		Return(&realestate.Affordability{Affordable: false, MonthlyPayment: 4400}, nil).Maybe()
}

func affordabilityFor(price float64) any {
	return mock.MatchedBy(func(in realestate.AffordabilityInput) bool { return in.Price == price })
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

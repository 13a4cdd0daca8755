package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-advisor/internal/model"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

func TestAnalysisLocation(t *testing.T) {
	tests := []struct {
		name    string
		listing realestate.Listing
		want    string
	}{
		{"full address", realestate.Listing{Address: "1 Main St, Austin, TX 78701", City: "Austin", State: "TX"}, "1 Main St, Austin, TX 78701"},
		{"placeholder address", realestate.Listing{Address: "Address not available", City: "Austin", State: "TX"}, "Austin, TX"},
		{"no address", realestate.Listing{City: " Austin ", State: "TX"}, "Austin, TX"},
		{"state only", realestate.Listing{State: "TX"}, "TX"},
		{"nothing", realestate.Listing{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analysisLocation(tt.listing))
		})
	}
}

func TestAnalyze_PanicIsolatedToListing(t *testing.T) {
	data := &mockDataClient{}
	data.On("NeighborhoodStats", mock.Anything, "200 Elm St, Austin, TX 78702").Run(func(mock.Arguments) {
		panic("decoder exploded")
	})
	stubAnalysisData(data)

	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	p := New(testConfig(), data, ai)
	records := p.analyze(context.Background(), newTestGenerator(ai), testListings(), model.SearchCriteria{})

	require.Len(t, records, 1)
	assert.Equal(t, "1001", records[0].ListingID)
}

func TestAnalyze_SkipsAffordabilityWithoutIncome(t *testing.T) {
	data := &mockDataClient{}
	stubAnalysisData(data)
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"pros": ["p"], "cons": ["c"], "overall": "o"}`), nil)

	p := New(testConfig(), data, ai)
	records := p.analyze(context.Background(), newTestGenerator(ai), testListings()[:1], model.SearchCriteria{})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Nil(t, rec.Affordability)
	require.NotNil(t, rec.Neighborhood)
	assert.Equal(t, 64.0, rec.Neighborhood.OverallScore)
	assert.Len(t, rec.Schools, 2)
	assert.Equal(t, []realestate.ComparableSale{}, rec.ComparableSales)
	assert.Equal(t, "o", rec.Summary.Overall)
	assert.Equal(t, string(OutcomeParsed), rec.SummarySource)
	data.AssertNotCalled(t, "Affordability", mock.Anything, mock.Anything)
}

func TestAnalyze_UsesIncomeForAffordability(t *testing.T) {
	data := &mockDataClient{}
	stubAnalysisData(data)
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	p := New(testConfig(), data, ai)
	records := p.analyze(context.Background(), newTestGenerator(ai), testListings(), model.SearchCriteria{AnnualIncome: 150000})

	require.Len(t, records, 2)
	require.NotNil(t, records[0].Affordability)
	assert.True(t, records[0].Affordability.Affordable)
	require.NotNil(t, records[1].Affordability)
	assert.False(t, records[1].Affordability.Affordable)
}

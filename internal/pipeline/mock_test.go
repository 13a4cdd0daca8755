package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/property-advisor/pkg/anthropic"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

// --- Real estate data Mock ---

type mockDataClient struct {
	mock.Mock
}

func (m *mockDataClient) SearchListings(ctx context.Context, p realestate.SearchParams) ([]realestate.Listing, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]realestate.Listing), args.Error(1)
}

func (m *mockDataClient) ListingDetails(ctx context.Context, id string) (*realestate.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*realestate.Listing), args.Error(1)
}

func (m *mockDataClient) ListingPhotos(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockDataClient) SimilarListings(ctx context.Context, id string, limit int) ([]realestate.Listing, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]realestate.Listing), args.Error(1)
}

func (m *mockDataClient) NeighborhoodStats(ctx context.Context, location string) (*realestate.NeighborhoodStats, error) {
	args := m.Called(ctx, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*realestate.NeighborhoodStats), args.Error(1)
}

func (m *mockDataClient) SchoolRatings(ctx context.Context, location string, radiusMiles float64) ([]realestate.SchoolRating, error) {
	args := m.Called(ctx, location, radiusMiles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]realestate.SchoolRating), args.Error(1)
}

func (m *mockDataClient) MarketTrends(ctx context.Context, location, timeframe string) (*realestate.MarketTrends, error) {
	args := m.Called(ctx, location, timeframe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*realestate.MarketTrends), args.Error(1)
}

func (m *mockDataClient) ComparableSales(ctx context.Context, location, propertyType string) ([]realestate.ComparableSale, error) {
	args := m.Called(ctx, location, propertyType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]realestate.ComparableSale), args.Error(1)
}

func (m *mockDataClient) Affordability(ctx context.Context, in realestate.AffordabilityInput) (*realestate.Affordability, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*realestate.Affordability), args.Error(1)
}

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// forPrompt matches generation requests by their system prompt.
func forPrompt(system string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.System == system
	})
}

// textResponse builds a one-block response with fixed usage.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}
}

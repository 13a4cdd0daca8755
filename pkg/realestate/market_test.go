package realestate

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNeighborhoodStats_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fixture          string
		crime, walk, all float64
		demo             Demographics
	}{
		{
			fixture: "neighborhood_flat.json",
			crime:   72, walk: 88, all: 81.6,
			demo: Demographics{Population: 45210, MedianAge: 34.5, MedianIncome: 78000, HouseholdSize: 2.4},
		},
		{
			fixture: "neighborhood_data.json",
			crime:   64, walk: 40, all: 49.6,
			demo: Demographics{Population: 12000, MedianAge: 41, MedianIncome: 65500, HouseholdSize: 2.9},
		},
		{
			fixture: "neighborhood_property.json",
			crime:   100, walk: 0, all: 40,
		},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			t.Parallel()
			r := newRoutes(t).file("/By Property Address", tt.fixture)
			c := newTestClient(t, r)

			got, err := c.NeighborhoodStats(context.Background(), "Austin, TX")
			require.NoError(t, err)
			assert.InDelta(t, tt.crime, got.CrimeScore, 0.001)
			assert.InDelta(t, tt.walk, got.WalkabilityScore, 0.001)
			assert.InDelta(t, tt.all, got.OverallScore, 0.001)
			assert.Equal(t, tt.demo, got.Demographics)
			assert.False(t, got.Degraded)
		})
	}
}

func TestNeighborhoodStats_NarrowInputNeutral(t *testing.T) {
	t.Parallel()

	r := newRoutes(t).status("/By Property Address", http.StatusBadRequest)
	c := newTestClient(t, r)

	got, err := c.NeighborhoodStats(context.Background(), "Texas")
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.InDelta(t, 50, got.CrimeScore, 0.001)
	assert.InDelta(t, 50, got.WalkabilityScore, 0.001)
	assert.InDelta(t, 50, got.OverallScore, 0.001)
	assert.Equal(t, "Texas", got.Location)
	assert.Equal(t, 1, r.count("/By Property Address"), "400 is not retried")
}

func TestNeighborhoodStats_MissingScoresAreNeutral(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{}`, `{"zpid": 1}`, `{"crimeScore": null}`} {
		got := parseNeighborhood("Reno, NV", gjson.Parse(body))
		assert.InDelta(t, 50, got.CrimeScore, 0.001, body)
		assert.InDelta(t, 50, got.WalkabilityScore, 0.001, body)
		assert.InDelta(t, 50, got.OverallScore, 0.001, body)
		assert.True(t, got.Degraded, body)
	}

	got := parseNeighborhood("Reno, NV", gjson.Parse(`{"walkScore": 70}`))
	assert.False(t, got.Degraded)
	assert.InDelta(t, 50, got.CrimeScore, 0.001)
}

func TestSchoolRatings_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fixture string
		want    []SchoolRating
	}{
		{
			fixture: "schools_named.json",
			want: []SchoolRating{
				{Name: "Ridge High", Type: "high", Rating: 9, DistanceMiles: 2.1, Grades: "9-12"},
				{Name: "Valley Middle", Type: "middle", Rating: 9, DistanceMiles: 1.4},
				{Name: "Maple Elementary", Type: "elementary", Rating: 7, DistanceMiles: 0.6, Grades: "K-5"},
			},
		},
		{
			fixture: "schools_nested.json",
			want: []SchoolRating{
				{Name: "North Elementary", Type: "elementary", Rating: 10},
				{Name: "Harbor Prep", Type: "private", Rating: 8, DistanceMiles: 3.2},
			},
		},
		{
			fixture: "schools_unlabeled.json",
			want: []SchoolRating{
				{Name: "Creek Elementary", Type: "elementary", Rating: 8, DistanceMiles: 0.4},
				{Name: "Sunrise Academy", Type: "elementary", Rating: 6, DistanceMiles: 1.1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			t.Parallel()
			r := newRoutes(t).file("/By Property Address", tt.fixture)
			c := newTestClient(t, r)

			got, err := c.SchoolRatings(context.Background(), "Austin, TX", 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchoolRatings_RadiusValidation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, newRoutes(t))
	for _, radius := range []float64{0.5, 26, -1} {
		_, err := c.SchoolRatings(context.Background(), "Austin, TX", radius)
		assert.True(t, IsValidation(err), "radius %v", radius)
	}
}

func TestSchoolRatings_NarrowInputEmpty(t *testing.T) {
	t.Parallel()

	r := newRoutes(t).status("/By Property Address", http.StatusBadRequest)
	c := newTestClient(t, r)

	got, err := c.SchoolRatings(context.Background(), "Texas", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMarketTrends_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fixture string
		want    MarketTrends
	}{
		{
			fixture: "trends_flat.json",
			want: MarketTrends{
				MedianPrice: 505000, PriceChangePercent: 4.8, DaysOnMarketAvg: 21,
				InventoryCount: 340, SalesVelocity: 410, PricePerSqft: 285, TrendDirection: TrendUp,
			},
		},
		{
			fixture: "trends_data.json",
			want: MarketTrends{
				MedianPrice: 480000, PriceChangePercent: -3.1, DaysOnMarketAvg: 60,
				InventoryCount: 120, SalesVelocity: 60, PricePerSqft: 250, TrendDirection: TrendDown,
			},
		},
		{
			fixture: "trends_sparse.json",
			want: MarketTrends{
				MedianPrice: 390000, PriceChangePercent: 1.2, DaysOnMarketAvg: 30,
				TrendDirection: TrendStable,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			t.Parallel()
			var gotZip string
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/By Property Address":
					w.Write([]byte(`{"address": {"zipcode": "78701"}}`)) //nolint:errcheck
				case "/housing_market":
					gotZip = r.URL.Query().Get("zip")
					w.Write(fixture(t, tt.fixture)) //nolint:errcheck
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			})
			c := newTestClient(t, h)

			got, err := c.MarketTrends(context.Background(), "Austin, TX", "")
			require.NoError(t, err)
			assert.Equal(t, "78701", gotZip)

			tt.want.Location = "Austin, TX"
			tt.want.Timeframe = "1y"
			assert.InDelta(t, tt.want.PriceChangePercent, got.PriceChangePercent, 0.001)
			got.PriceChangePercent = tt.want.PriceChangePercent
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestMarketTrends_ZipFromLocation(t *testing.T) {
	t.Parallel()

	var query string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/housing_market" {
			query = r.URL.RawQuery
		}
		w.Write([]byte(`{}`)) //nolint:errcheck
	})
	c := newTestClient(t, h)

	_, err := c.MarketTrends(context.Background(), "Austin, TX 78704", "6M")
	require.NoError(t, err)
	assert.Equal(t, "zip=78704", query)

	_, err = c.MarketTrends(context.Background(), "Boise, ID", "3m")
	require.NoError(t, err)
	assert.Equal(t, "address=Boise%2C+ID", query)
}

func TestMarketTrends_Validation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, newRoutes(t))
	_, err := c.MarketTrends(context.Background(), "Austin, TX", "2y")
	assert.True(t, IsValidation(err))
}

func TestMarketTrends_NarrowInputNeutral(t *testing.T) {
	t.Parallel()

	r := newRoutes(t).status("/By Property Address", http.StatusBadRequest)
	c := newTestClient(t, r)

	got, err := c.MarketTrends(context.Background(), "Texas", "1m")
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.Equal(t, TrendStable, got.TrendDirection)
	assert.InDelta(t, 30, got.DaysOnMarketAvg, 0.001)
	assert.Equal(t, "1m", got.Timeframe)
}

func TestParseTrends_NoFieldsIsDegraded(t *testing.T) {
	t.Parallel()

	got := parseTrends("Austin, TX", "1y", gjson.Parse(`{"zpid": 1}`))
	assert.True(t, got.Degraded)
	assert.Equal(t, TrendStable, got.TrendDirection)
	assert.InDelta(t, 30, got.DaysOnMarketAvg, 0.001)

	got = parseTrends("Austin, TX", "1y", gjson.Parse(`{"priceChangePercent": 0}`))
	assert.False(t, got.Degraded)
}

func TestTrendDirection(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TrendUp, trendDirection(2.01))
	assert.Equal(t, TrendStable, trendDirection(2))
	assert.Equal(t, TrendStable, trendDirection(-2))
	assert.Equal(t, TrendDown, trendDirection(-2.5))
}

func TestComparableSales_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fixture string
		want    []ComparableSale
	}{
		{
			fixture: "comps_flat.json",
			want: []ComparableSale{
				{Address: "3 Main St", SalePrice: 455000, SaleDate: "2024-06-02", SquareFeet: 1850, Bedrooms: 3, Bathrooms: 2.5, PropertyType: "house", DistanceMiles: 0.4},
				{Address: "5 Main St #2", SalePrice: 300000, SaleDate: "2024-05-20", SquareFeet: 950, Bedrooms: 2, Bathrooms: 1, PropertyType: "condo", DistanceMiles: 0.5},
				{Address: "1 Main St", SalePrice: 430000, SaleDate: "2024-03-15", SquareFeet: 1700, Bedrooms: 3, Bathrooms: 2, PropertyType: "house", DistanceMiles: 0.3},
			},
		},
		{
			fixture: "comps_data.json",
			want: []ComparableSale{
				{Address: "8 Hill Rd", SalePrice: 610000, SaleDate: "2024-01-20", SquareFeet: 2200, Bedrooms: 4, Bathrooms: 3, PropertyType: "townhouse", DistanceMiles: 1.2},
				{Address: "10 Hill Rd", SalePrice: 598000, SaleDate: "2023-11-05", SquareFeet: 2150, Bedrooms: 4, Bathrooms: 3, PropertyType: "townhouse"},
			},
		},
		{
			fixture: "comps_property.json",
			want: []ComparableSale{
				{Address: "44 Bay St", SalePrice: 365000, SaleDate: "2024-03-09", SquareFeet: 1450, Bedrooms: 2, Bathrooms: 2, PropertyType: "house"},
				{Address: "Address not available", SalePrice: 350000, SaleDate: "2023-11-14", SquareFeet: 1400, Bedrooms: 2, Bathrooms: 2, PropertyType: "house"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			t.Parallel()
			r := newRoutes(t).file("/comparable_homes", tt.fixture)
			c := newTestClient(t, r)

			got, err := c.ComparableSales(context.Background(), "1 Main St, Austin, TX", "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComparableSales_TypeFilter(t *testing.T) {
	t.Parallel()

	r := newRoutes(t).file("/comparable_homes", "comps_flat.json")
	c := newTestClient(t, r)

	got, err := c.ComparableSales(context.Background(), "1 Main St, Austin, TX", "CONDO")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "5 Main St #2", got[0].Address)

	all, err := c.ComparableSales(context.Background(), "1 Main St, Austin, TX", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 2, r.count("/comparable_homes"), "property type is part of the cache key")
}

func TestComparableSales_NarrowInputEmpty(t *testing.T) {
	t.Parallel()

	r := newRoutes(t).status("/comparable_homes", http.StatusBadRequest)
	c := newTestClient(t, r)

	got, err := c.ComparableSales(context.Background(), "Texas", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

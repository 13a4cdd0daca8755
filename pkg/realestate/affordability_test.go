package realestate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestCalculateAffordability_Breakdown(t *testing.T) {
	t.Parallel()

	got, err := CalculateAffordability(AffordabilityInput{Price: 500000, AnnualIncome: 120000, DownPayment: ptr(100000)})
	require.NoError(t, err)

	assert.InDelta(t, 400000, got.LoanAmount, 0.001)
	assert.InDelta(t, 100000, got.DownPayment, 0.001)
	assert.InDelta(t, 2528.27, got.MonthlyPrincipalInterest, 0.011)
	assert.InDelta(t, 500, got.EstimatedMonthlyTaxes, 0.001)
	assert.InDelta(t, 145.83, got.EstimatedMonthlyInsurance, 0.001)
	assert.InDelta(t, 3174.11, got.MonthlyPayment, 0.011)
	assert.InDelta(t, 31.74, got.DebtToIncomeRatio, 0.011)
	assert.False(t, got.Affordable)
	assert.Contains(t, got.Recommendation, "Not affordable.")
	assert.Contains(t, got.Recommendation, "exceeds recommended 28% of income")
}

func TestCalculateAffordability_Tiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         AffordabilityInput
		affordable bool
		advice     string
	}{
		{
			name:       "highly affordable",
			in:         AffordabilityInput{Price: 300000, AnnualIncome: 200000},
			affordable: true,
			advice:     "Highly affordable. You have significant room in your budget.",
		},
		{
			name:       "affordable",
			in:         AffordabilityInput{Price: 400000, AnnualIncome: 130000},
			affordable: true,
			advice:     "Affordable. This fits comfortably within your budget.",
		},
		{
			name:       "upper limit",
			in:         AffordabilityInput{Price: 400000, AnnualIncome: 115000},
			affordable: true,
			advice:     "Affordable but at the upper limit. Consider your other expenses.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CalculateAffordability(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.affordable, got.Affordable)
			assert.Equal(t, tt.advice, got.Recommendation)
			assert.InDelta(t, tt.in.Price*0.2, got.DownPayment, 0.001, "default down payment is 20%")
		})
	}
}

func TestCalculateAffordability_FullCashPurchase(t *testing.T) {
	t.Parallel()

	got, err := CalculateAffordability(AffordabilityInput{Price: 200000, AnnualIncome: 50000, DownPayment: ptr(200000)})
	require.NoError(t, err)
	assert.InDelta(t, 0, got.LoanAmount, 0.001)
	assert.InDelta(t, 0, got.MonthlyPrincipalInterest, 0.001)
	assert.InDelta(t, 258.33, got.MonthlyPayment, 0.011)
}

func TestCalculateAffordability_DTICapped(t *testing.T) {
	t.Parallel()

	got, err := CalculateAffordability(AffordabilityInput{Price: 5000000, AnnualIncome: 10000})
	require.NoError(t, err)
	assert.InDelta(t, 100, got.DebtToIncomeRatio, 0.001)
	assert.False(t, got.Affordable)
}

func TestCalculateAffordability_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    AffordabilityInput
		field string
	}{
		{"zero price", AffordabilityInput{Price: 0, AnnualIncome: 1}, "price"},
		{"zero income", AffordabilityInput{Price: 1, AnnualIncome: 0}, "annual_income"},
		{"negative down", AffordabilityInput{Price: 100, AnnualIncome: 1, DownPayment: ptr(-1)}, "down_payment"},
		{"down above price", AffordabilityInput{Price: 100, AnnualIncome: 1, DownPayment: ptr(101)}, "down_payment"},
	}
	for _, tt := range tests {
		_, err := CalculateAffordability(tt.in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, tt.name)
		assert.Equal(t, tt.field, ve.Field, tt.name)
	}
}

func TestClientAffordability_NoNetwork(t *testing.T) {
	t.Parallel()

	r := newRoutes(t)
	c := newTestClient(t, r)

	got, err := c.Affordability(context.Background(), AffordabilityInput{Price: 300000, AnnualIncome: 200000})
	require.NoError(t, err)
	assert.True(t, got.Affordable)
	assert.Equal(t, int32(0), r.total.Load())
}

package realestate

import (
	"context"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Mortgage assumptions used by the affordability calculator.
const (
	loanTermYears       = 30
	annualInterestRate  = 0.065
	annualTaxRate       = 0.012
	annualInsuranceRate = 0.0035
	maxDebtToIncome     = 28.0
	defaultDownFraction = 0.20
)

// AffordabilityInput describes a purchase. A nil DownPayment means 20% of
// the price.
type AffordabilityInput struct {
	Price        float64  `json:"price" yaml:"price"`
	AnnualIncome float64  `json:"annual_income" yaml:"annual_income"`
	DownPayment  *float64 `json:"down_payment,omitempty" yaml:"down_payment,omitempty"`
}

// Affordability is the monthly cost breakdown for a purchase.
type Affordability struct {
	Affordable                bool    `json:"affordable" yaml:"affordable"`
	MonthlyPayment            float64 `json:"monthly_payment" yaml:"monthly_payment"`
	DownPayment               float64 `json:"down_payment" yaml:"down_payment"`
	LoanAmount                float64 `json:"loan_amount" yaml:"loan_amount"`
	MonthlyPrincipalInterest  float64 `json:"monthly_principal_interest" yaml:"monthly_principal_interest"`
	EstimatedMonthlyTaxes     float64 `json:"estimated_monthly_taxes" yaml:"estimated_monthly_taxes"`
	EstimatedMonthlyInsurance float64 `json:"estimated_monthly_insurance" yaml:"estimated_monthly_insurance"`
	DebtToIncomeRatio         float64 `json:"debt_to_income_ratio" yaml:"debt_to_income_ratio"`
	Recommendation            string  `json:"recommendation" yaml:"recommendation"`
}

// Affordability runs the local calculator. It never calls the provider.
func (c *client) Affordability(_ context.Context, in AffordabilityInput) (*Affordability, error) {
	return CalculateAffordability(in)
}

// CalculateAffordability computes the monthly payment on a fixed 30-year
// loan plus estimated taxes and insurance, and compares it to 28% of gross
// monthly income.
func CalculateAffordability(in AffordabilityInput) (*Affordability, error) {
	if in.Price <= 0 {
		return nil, &ValidationError{Field: "price", Reason: "must be greater than 0"}
	}
	if in.AnnualIncome <= 0 {
		return nil, &ValidationError{Field: "annual_income", Reason: "must be greater than 0"}
	}
	down := in.Price * defaultDownFraction
	if in.DownPayment != nil {
		down = *in.DownPayment
	}
	if down < 0 || down > in.Price {
		return nil, &ValidationError{Field: "down_payment", Reason: "must be between 0 and the price"}
	}

	loan := in.Price - down
	pi := monthlyPrincipalInterest(loan, annualInterestRate, loanTermYears)
	taxes := in.Price * annualTaxRate / 12
	insurance := in.Price * annualInsuranceRate / 12
	payment := pi + taxes + insurance

	dti := math.Min(payment/(in.AnnualIncome/12)*100, 100)
	affordable := dti <= maxDebtToIncome

	return &Affordability{
		Affordable:                affordable,
		MonthlyPayment:            round2(payment),
		DownPayment:               round2(down),
		LoanAmount:                round2(loan),
		MonthlyPrincipalInterest:  round2(pi),
		EstimatedMonthlyTaxes:     round2(taxes),
		EstimatedMonthlyInsurance: round2(insurance),
		DebtToIncomeRatio:         round2(dti),
		Recommendation:            affordabilityAdvice(affordable, dti, payment),
	}, nil
}

func monthlyPrincipalInterest(loan, annualRate float64, years int) float64 {
	if loan <= 0 {
		return 0
	}
	n := float64(years * 12)
	r := annualRate / 12
	if r == 0 {
		return loan / n
	}
	growth := math.Pow(1+r, n)
	return loan * r * growth / (growth - 1)
}

func affordabilityAdvice(affordable bool, dti, payment float64) string {
	switch {
	case dti < 20:
		return "Highly affordable. You have significant room in your budget."
	case dti < 25:
		return "Affordable. This fits comfortably within your budget."
	case affordable:
		return "Affordable but at the upper limit. Consider your other expenses."
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("Not affordable. Monthly payment ($%.2f) exceeds recommended 28%% of income. "+
		"Consider a lower-priced property or increase your down payment.", payment)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

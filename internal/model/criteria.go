package model

import (
	"strings"

	"github.com/sells-group/property-advisor/pkg/realestate"
)

// Confidence is the coarse certainty attached to extracted intent.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence maps free text onto a Confidence. Unknown values are
// reported with ok=false.
func ParseConfidence(s string) (Confidence, bool) {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c, true
	default:
		return "", false
	}
}

// SearchCriteria is the structured form of a user's request. Zero values
// mean the user did not say.
type SearchCriteria struct {
	Location     string     `json:"location,omitempty" yaml:"location,omitempty"`
	MinPrice     int        `json:"min_price,omitempty" yaml:"min_price,omitempty"`
	MaxPrice     int        `json:"max_price,omitempty" yaml:"max_price,omitempty"`
	Bedrooms     int        `json:"bedrooms,omitempty" yaml:"bedrooms,omitempty"`
	Bathrooms    float64    `json:"bathrooms,omitempty" yaml:"bathrooms,omitempty"`
	PropertyType string     `json:"property_type,omitempty" yaml:"property_type,omitempty"`
	AnnualIncome float64    `json:"annual_income,omitempty" yaml:"annual_income,omitempty"`
	Confidence   Confidence `json:"confidence" yaml:"confidence"`
}

// PopulatedFields counts the search fields that carry a value. Confidence
// and income are not search fields.
func (c SearchCriteria) PopulatedFields() int {
	n := 0
	if strings.TrimSpace(c.Location) != "" {
		n++
	}
	if c.MinPrice > 0 {
		n++
	}
	if c.MaxPrice > 0 {
		n++
	}
	if c.Bedrooms > 0 {
		n++
	}
	if c.Bathrooms > 0 {
		n++
	}
	if strings.TrimSpace(c.PropertyType) != "" {
		n++
	}
	return n
}

// SearchParams converts the criteria into an adapter listing search.
func (c SearchCriteria) SearchParams() realestate.SearchParams {
	return realestate.SearchParams{
		Location:     c.Location,
		MinPrice:     c.MinPrice,
		MaxPrice:     c.MaxPrice,
		Bedrooms:     c.Bedrooms,
		Bathrooms:    c.Bathrooms,
		PropertyType: strings.ToLower(c.PropertyType),
	}
}

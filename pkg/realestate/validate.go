package realestate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxLocationLen = 200

func validateLocation(location string) (string, error) {
	loc := strings.TrimSpace(location)
	if utf8.RuneCountInString(loc) < 2 {
		return "", &ValidationError{Field: "location", Reason: "must be at least 2 characters"}
	}
	if utf8.RuneCountInString(loc) > maxLocationLen {
		return "", &ValidationError{Field: "location", Reason: "must be at most 200 characters"}
	}
	return loc, nil
}

func validateID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &ValidationError{Field: "property_id", Reason: "is required"}
	}
	return id, nil
}

func validateRange(field string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be between %g and %g", lo, hi)}
	}
	return nil
}

package realestate

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when the provider has no record for a listing id.
var ErrNotFound = eris.New("realestate: listing not found")

// ErrRateLimited marks an UpstreamError whose final attempt was a 429.
var ErrRateLimited = eris.New("realestate: rate limited")

// ValidationError reports bad caller input. It is raised before any network
// call and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("realestate: invalid %s: %s", e.Field, e.Reason)
}

// ConfigError reports missing or rejected credentials. Callers should treat
// it as fatal.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "realestate: config: " + e.Reason
}

// StatusError is a non-retryable client error response from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("realestate: status %d: %s", e.StatusCode, e.Body)
}

// UpstreamError is returned once the retry budget for an operation is spent
// on network failures, 5xx or 429 responses.
type UpstreamError struct {
	Op         string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("realestate: %s failed after %d attempts (status %d): %v", e.Op, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("realestate: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	if e.StatusCode == 429 {
		return []error{e.Err, ErrRateLimited}
	}
	return []error{e.Err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// statusOf returns the HTTP status carried by err, or 0.
func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

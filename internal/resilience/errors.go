package resilience

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// TransientError marks a failure that is safe to retry (429, 5xx, network).
type TransientError struct {
	Err        error
	StatusCode int
	// RetryAfter is the wait the server asked for, zero when unspecified.
	RetryAfter time.Duration
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err, or anything it wraps, is a
// TransientError or a recognizable network failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"unexpected eof",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsRateLimited reports whether err carries a 429.
func IsRateLimited(err error) bool {
	var te *TransientError
	return errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests
}

// IsTransientHTTPStatus reports whether an HTTP status is worth retrying:
// 429 and any 5xx. Every other client error is final.
func IsTransientHTTPStatus(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode <= 599
}

// ParseRetryAfter reads a Retry-After header given as delta-seconds or an
// HTTP date. Unparseable or past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

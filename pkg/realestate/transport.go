package realestate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/property-advisor/internal/cache"
	"github.com/sells-group/property-advisor/internal/resilience"
)

const maxBodyBytes = 8 << 20

// placeholderKey is the sample key from the provider setup guide.
const placeholderKey = "your_rapidapi_key_here"

// get issues one logical upstream call: circuit breaker, then the retry
// policy around individual HTTP attempts.
func (c *client) get(ctx context.Context, op, endpoint string, params url.Values) (gjson.Result, error) {
	switch strings.TrimSpace(c.apiKey) {
	case "":
		return gjson.Result{}, &ConfigError{Reason: "api key is not set"}
	case placeholderKey:
		return gjson.Result{}, &ConfigError{Reason: "api key is still the example placeholder"}
	}

	segments := strings.Split(endpoint, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	reqURL := c.baseURL + "/" + strings.Join(segments, "/")
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("realestate", op)

	attempts := 0
	doc, err := resilience.ExecuteVal(ctx, c.breakers.Get(op), func(ctx context.Context) (gjson.Result, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (gjson.Result, error) {
			attempts++
			return c.attempt(ctx, op, reqURL)
		})
	})
	if err == nil {
		return doc, nil
	}

	var se *StatusError
	var ce *ConfigError
	if errors.As(err, &se) || errors.As(err, &ce) {
		return gjson.Result{}, err
	}

	status := 0
	var te *resilience.TransientError
	if errors.As(err, &te) {
		status = te.StatusCode
	}
	return gjson.Result{}, &UpstreamError{Op: op, StatusCode: status, Attempts: attempts, Err: err}
}

// attempt performs a single HTTP GET and classifies the outcome.
func (c *client) attempt(ctx context.Context, op, reqURL string) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, eris.Wrap(err, "realestate: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return gjson.Result{}, eris.Wrap(err, "realestate: create request")
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return gjson.Result{}, eris.Wrap(err, "realestate: request cancelled")
		}
		c.metrics.Requests.WithLabelValues(op, "transient").Inc()
		return gjson.Result{}, resilience.NewTransientError(eris.Wrap(err, "realestate: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.Requests.WithLabelValues(op, "transient").Inc()
		return gjson.Result{}, resilience.NewTransientError(eris.Wrap(err, "realestate: read body"), resp.StatusCode)
	}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		c.metrics.Requests.WithLabelValues(op, "client_error").Inc()
		return gjson.Result{}, &ConfigError{Reason: fmt.Sprintf("provider rejected credentials (status %d)", code)}
	case resilience.IsTransientHTTPStatus(code):
		c.metrics.Requests.WithLabelValues(op, "transient").Inc()
		te := resilience.NewTransientError(eris.Errorf("realestate: %s status %d", op, code), code)
		if resilience.IsRateLimited(te) {
			te.RetryAfter = resilience.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		}
		return gjson.Result{}, te
	case code >= 400:
		c.metrics.Requests.WithLabelValues(op, "client_error").Inc()
		return gjson.Result{}, &StatusError{StatusCode: code, Body: truncate(string(body), 256)}
	}

	c.metrics.Requests.WithLabelValues(op, "ok").Inc()
	return decodeDocument(body)
}

// decodeDocument parses a JSON body. A bare top-level array is exposed
// under "data" so list paths can find it; scalars become an empty object.
func decodeDocument(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, eris.New("realestate: decode response: invalid json")
	}
	doc := gjson.ParseBytes(body)
	switch {
	case doc.IsObject():
		return doc, nil
	case doc.IsArray():
		return gjson.Parse(`{"data":` + doc.Raw + `}`), nil
	default:
		return gjson.Parse(`{}`), nil
	}
}

// cached serves op from the cache or calls fetch and stores its result.
// Degraded results are kept only for the short search TTL.
func cached[T any](c *client, op string, params map[string]string, ttl time.Duration, fetch func() (T, bool, error)) (T, error) {
	key := cache.Key(op, params)
	if v, ok := cache.Lookup[T](c.cache, key); ok {
		c.metrics.CacheLookups.WithLabelValues(op, "hit").Inc()
		zap.L().Debug("realestate: cache hit", zap.String("key", key))
		return v, nil
	}
	c.metrics.CacheLookups.WithLabelValues(op, "miss").Inc()

	v, degraded, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	if degraded {
		c.metrics.Degraded.WithLabelValues(op).Inc()
		ttl = c.ttls.Search
	}
	c.cache.Set(key, v, ttl)
	return v, nil
}

// isNarrowInput reports a 400, which the provider uses for "needs a more
// specific address".
func isNarrowInput(err error) bool {
	return statusOf(err) == http.StatusBadRequest
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

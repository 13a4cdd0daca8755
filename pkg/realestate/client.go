// Package realestate is the resilient adapter over the listing and market
// data provider. It validates input, caches normalized results, retries
// transient upstream failures and maps inconsistent response shapes onto
// stable records.
package realestate

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/property-advisor/internal/cache"
	"github.com/sells-group/property-advisor/internal/resilience"
)

// Client defines the adapter operations used by the pipeline.
type Client interface {
	SearchListings(ctx context.Context, p SearchParams) ([]Listing, error)
	ListingDetails(ctx context.Context, id string) (*Listing, error)
	ListingPhotos(ctx context.Context, id string) ([]string, error)
	SimilarListings(ctx context.Context, id string, limit int) ([]Listing, error)
	NeighborhoodStats(ctx context.Context, location string) (*NeighborhoodStats, error)
	SchoolRatings(ctx context.Context, location string, radiusMiles float64) ([]SchoolRating, error)
	MarketTrends(ctx context.Context, location, timeframe string) (*MarketTrends, error)
	ComparableSales(ctx context.Context, location, propertyType string) ([]ComparableSale, error)
	Affordability(ctx context.Context, in AffordabilityInput) (*Affordability, error)
}

// TTLs are the cache freshness buckets.
type TTLs struct {
	// Search covers listing search and degraded neutral defaults.
	Search time.Duration
	// Medium covers details, trends and comparable sales.
	Medium time.Duration
	// Long covers neighborhood and school data.
	Long time.Duration
}

// DefaultTTLs returns 5 minutes, 1 hour and 24 hours.
func DefaultTTLs() TTLs {
	return TTLs{Search: 5 * time.Minute, Medium: time.Hour, Long: 24 * time.Hour}
}

// Option configures the client.
type Option func(*client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithHost sets the provider host identifier header.
func WithHost(h string) Option {
	return func(c *client) { c.host = h }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

// WithCache shares a cache store between clients.
func WithCache(s cache.Store) Option {
	return func(c *client) { c.cache = s }
}

// WithTTLs overrides the cache freshness buckets.
func WithTTLs(t TTLs) Option {
	return func(c *client) { c.ttls = t }
}

// WithRetry overrides the retry policy.
func WithRetry(r resilience.RetryConfig) Option {
	return func(c *client) { c.retry = r }
}

// WithBreakers sets the per-operation circuit breakers.
func WithBreakers(b *resilience.Breakers) Option {
	return func(c *client) { c.breakers = b }
}

// WithRateLimit caps outbound requests per second. Zero disables the cap.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *client) { c.metrics = m }
}

const (
	defaultBaseURL = "https://zillow-com1.p.rapidapi.com"
	defaultHost    = "zillow-com1.p.rapidapi.com"
	listingOrigin  = "https://www.zillow.com"
)

type client struct {
	apiKey   string
	baseURL  string
	host     string
	http     *http.Client
	cache    cache.Store
	ttls     TTLs
	retry    resilience.RetryConfig
	breakers *resilience.Breakers
	limiter  *rate.Limiter
	metrics  *Metrics
}

// NewClient creates an adapter client. An empty apiKey is accepted here and
// reported as a ConfigError on the first call that needs the network.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		host:     defaultHost,
		ttls:     DefaultTTLs(),
		retry:    resilience.DefaultRetryConfig(),
		breakers: resilience.NewBreakers(resilience.DefaultCircuitBreakerConfig()),
		limiter:  rate.NewLimiter(rate.Inf, 0),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NewMemory(10 * time.Minute)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

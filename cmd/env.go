package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sells-group/property-advisor/internal/cache"
	"github.com/sells-group/property-advisor/internal/config"
	"github.com/sells-group/property-advisor/internal/pipeline"
	"github.com/sells-group/property-advisor/internal/resilience"
	"github.com/sells-group/property-advisor/internal/session"
	anthropicpkg "github.com/sells-group/property-advisor/pkg/anthropic"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

// appEnv holds the clients and services shared by the recommend, search and
// serve commands.
type appEnv struct {
	Data     realestate.Client
	Pipeline *pipeline.Pipeline
	Sessions *session.Store
	Cache    *cache.Memory
	Breakers *resilience.Breakers
	Registry *prometheus.Registry
}

// newRegistry returns a registry carrying the Go runtime and process
// collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newCache returns the process-wide adapter cache.
func newCache(c *config.Config) *cache.Memory {
	return cache.NewMemory(time.Duration(c.Cache.CleanupSecs) * time.Second)
}

// newBreakers returns the per-operation circuit breakers.
func newBreakers(c *config.Config) *resilience.Breakers {
	return resilience.NewBreakers(resilience.FromCircuitConfig(
		c.Circuit.FailureThreshold,
		c.Circuit.ResetTimeoutSecs,
	))
}

// newDataClient builds the real estate adapter from configuration. One
// cache store is shared by every operation for the life of the process.
func newDataClient(c *config.Config, reg prometheus.Registerer, store *cache.Memory, breakers *resilience.Breakers) realestate.Client {
	return realestate.NewClient(c.RealEstate.Key,
		realestate.WithBaseURL(c.RealEstate.BaseURL),
		realestate.WithHost(c.RealEstate.Host),
		realestate.WithHTTPClient(&http.Client{
			Timeout: time.Duration(c.RealEstate.TimeoutSecs) * time.Second,
		}),
		realestate.WithCache(store),
		realestate.WithTTLs(realestate.TTLs{
			Search: time.Duration(c.Cache.SearchTTLSecs) * time.Second,
			Medium: time.Duration(c.Cache.MediumTTLSecs) * time.Second,
			Long:   time.Duration(c.Cache.LongTTLSecs) * time.Second,
		}),
		realestate.WithRetry(resilience.FromRetryConfig(
			c.Retry.MaxAttempts,
			c.Retry.InitialBackoffMs,
			c.Retry.MaxBackoffMs,
			c.Retry.RateLimitBackoffMs,
			c.Retry.Multiplier,
			c.Retry.JitterFraction,
		)),
		realestate.WithBreakers(breakers),
		realestate.WithRateLimit(c.RealEstate.RateLimitRPS),
		realestate.WithMetrics(realestate.NewMetrics(reg)),
	)
}

// initEnv validates configuration for mode and builds the pipeline and its
// collaborators.
func initEnv(mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	reg := newRegistry()
	store := newCache(cfg)
	breakers := newBreakers(cfg)
	data := newDataClient(cfg, reg, store, breakers)
	ai := anthropicpkg.NewClient(cfg.Anthropic.Key,
		anthropicpkg.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second),
	)

	p := pipeline.New(cfg, data, ai, pipeline.WithMetrics(pipeline.NewMetrics(reg)))

	return &appEnv{
		Data:     data,
		Pipeline: p,
		Sessions: session.NewStore(time.Duration(cfg.Session.TTLHours)*time.Hour, 10*time.Minute),
		Cache:    store,
		Breakers: breakers,
		Registry: reg,
	}, nil
}

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	RealEstate RealEstateConfig `yaml:"realestate" mapstructure:"realestate"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds text generation settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RealEstateConfig holds the listing data provider settings.
type RealEstateConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	Host         string  `yaml:"host" mapstructure:"host"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// RetryConfig controls upstream retries.
type RetryConfig struct {
	MaxAttempts        int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs   int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs       int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	RateLimitBackoffMs int     `yaml:"rate_limit_backoff_ms" mapstructure:"rate_limit_backoff_ms"`
	Multiplier         float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction     float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig controls per-operation circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// CacheConfig sets the freshness buckets for adapter results.
type CacheConfig struct {
	SearchTTLSecs int `yaml:"search_ttl_secs" mapstructure:"search_ttl_secs"`
	MediumTTLSecs int `yaml:"medium_ttl_secs" mapstructure:"medium_ttl_secs"`
	LongTTLSecs   int `yaml:"long_ttl_secs" mapstructure:"long_ttl_secs"`
	CleanupSecs   int `yaml:"cleanup_secs" mapstructure:"cleanup_secs"`
}

// PipelineConfig configures the recommendation pipeline.
type PipelineConfig struct {
	AnalyzeLimit       int `yaml:"analyze_limit" mapstructure:"analyze_limit"`
	NarrativeTopN      int `yaml:"narrative_top_n" mapstructure:"narrative_top_n"`
	AnalyzeConcurrency int `yaml:"analyze_concurrency" mapstructure:"analyze_concurrency"`
	CallTimeoutSecs    int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
}

// SessionConfig configures the in-memory user context store.
type SessionConfig struct {
	TTLHours     int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit"`
}

// PricingConfig holds per-model token pricing.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("realestate.host", "zillow-com1.p.rapidapi.com")
	v.SetDefault("realestate.base_url", "https://zillow-com1.p.rapidapi.com")
	v.SetDefault("realestate.timeout_secs", 30)
	v.SetDefault("realestate.rate_limit_rps", 5.0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.rate_limit_backoff_ms", 10000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.0)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("cache.search_ttl_secs", 300)
	v.SetDefault("cache.medium_ttl_secs", 3600)
	v.SetDefault("cache.long_ttl_secs", 86400)
	v.SetDefault("cache.cleanup_secs", 600)
	v.SetDefault("pipeline.analyze_limit", 5)
	v.SetDefault("pipeline.narrative_top_n", 3)
	v.SetDefault("pipeline.analyze_concurrency", 1)
	v.SetDefault("pipeline.call_timeout_secs", 30)
	v.SetDefault("session.ttl_hours", 24)
	v.SetDefault("session.history_limit", 20)
	v.SetDefault("pricing.anthropic", map[string]any{
		"claude-haiku-4-5-20251001": map[string]any{
			"input": 0.80, "output": 4.00, "cache_write_mul": 1.25, "cache_read_mul": 0.1,
		},
		"claude-sonnet-4-5-20250929": map[string]any{
			"input": 3.00, "output": 15.00, "cache_write_mul": 1.25, "cache_read_mul": 0.1,
		},
	})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// loadDotEnv exports variables from path without overriding ones already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return eris.Wrapf(err, "config: load %s", path)
	}
	return nil
}

// Validate checks the settings required by the given command mode.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "recommend", "serve":
		errs = append(errs, checkKey("anthropic.key", c.Anthropic.Key, anthropicPlaceholder)...)
		errs = append(errs, checkKey("realestate.key", c.RealEstate.Key, realEstatePlaceholder)...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "search":
		errs = append(errs, checkKey("realestate.key", c.RealEstate.Key, realEstatePlaceholder)...)
	case "afford":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Pipeline.AnalyzeLimit < 1 {
		errs = append(errs, "pipeline.analyze_limit must be >= 1")
	}
	if c.Pipeline.NarrativeTopN < 1 {
		errs = append(errs, "pipeline.narrative_top_n must be >= 1")
	}
	if c.Pipeline.AnalyzeConcurrency < 1 || c.Pipeline.AnalyzeConcurrency > c.Pipeline.AnalyzeLimit {
		errs = append(errs, "pipeline.analyze_concurrency must be between 1 and analyze_limit")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Placeholder keys that mean the key was never filled in.
const (
	anthropicPlaceholder  = "your_anthropic_api_key_here"
	realEstatePlaceholder = "your_rapidapi_key_here"
)

func checkKey(name, value, placeholder string) []string {
	switch strings.TrimSpace(value) {
	case "":
		return []string{name + " is required"}
	case placeholder:
		return []string{name + " is still the example placeholder"}
	}
	return nil
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/owaisoptics/reviewdesk/pkg/config"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the reviewdesk service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"REVIEWDESK_HTTP_PORT" envDefault:"8080"`

	// Review service
	APIBaseURL     string `env:"API_BASE_URL" envDefault:"http://localhost:8000/api"`
	PublicBasePath string `env:"PUBLIC_BASE_PATH" envDefault:"/"`

	// Session persistence
	SessionBackend   string `env:"SESSION_BACKEND" envDefault:"memory"`
	RedisAddr        string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass        string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`
	SessionKeyPrefix string `env:"SESSION_KEY_PREFIX" envDefault:"reviewdesk:"`
	SessionTTLHours  int    `env:"SESSION_TTL_HOURS" envDefault:"0"`

	// Listing
	PageSize   int `env:"REVIEWS_PAGE_SIZE" envDefault:"12"`
	FetchLimit int `env:"REVIEWS_FETCH_LIMIT" envDefault:"100"`

	// Outbound HTTP
	HTTPClientTimeoutSeconds int `env:"HTTP_CLIENT_TIMEOUT_SECONDS" envDefault:"10"`
	HTTPClientMaxRetries     int `env:"HTTP_CLIENT_MAX_RETRIES" envDefault:"1"`

	// Circuit breaker
	CBMaxRequests     uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBIntervalSeconds int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeoutSeconds  int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio    float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests     uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Submission throttling (per client IP)
	SubmitRateLimitRPS   float64 `env:"SUBMIT_RATE_LIMIT_RPS" envDefault:"2"`
	SubmitRateLimitBurst int     `env:"SUBMIT_RATE_LIMIT_BURST" envDefault:"5"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load reviewdesk config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SessionTTL is the expiry applied to persisted session keys; zero means none.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// HTTPClientTimeout is the per-attempt timeout for calls to the review service.
func (c *Config) HTTPClientTimeout() time.Duration {
	return time.Duration(c.HTTPClientTimeoutSeconds) * time.Second
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL: %q", c.APIBaseURL)
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")

	if !strings.HasPrefix(c.PublicBasePath, "/") {
		return fmt.Errorf("PUBLIC_BASE_PATH must start with '/': %q", c.PublicBasePath)
	}

	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid SESSION_BACKEND %q: must be one of memory, redis", c.SessionBackend)
	}
	if c.SessionTTLHours < 0 {
		return fmt.Errorf("invalid SESSION_TTL_HOURS: %d", c.SessionTTLHours)
	}

	if c.PageSize < 1 {
		return fmt.Errorf("invalid REVIEWS_PAGE_SIZE: %d", c.PageSize)
	}
	if c.FetchLimit < 1 || c.FetchLimit > 100 {
		return fmt.Errorf("invalid REVIEWS_FETCH_LIMIT: %d (must be 1..100)", c.FetchLimit)
	}

	if c.HTTPClientTimeoutSeconds < 1 {
		return fmt.Errorf("invalid HTTP_CLIENT_TIMEOUT_SECONDS: %d", c.HTTPClientTimeoutSeconds)
	}
	if c.HTTPClientMaxRetries < 0 {
		return fmt.Errorf("invalid HTTP_CLIENT_MAX_RETRIES: %d", c.HTTPClientMaxRetries)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		return fmt.Errorf("invalid CB_FAILURE_RATIO: %v", c.CBFailureRatio)
	}

	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v", c.OTelSampleRate)
	}
	return nil
}

package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment variable, e.g. FINTRACK_DB_PATH.
// Fields with an envconfig tag also accept the bare name (PORT, AMQP_URL).
const EnvPrefix = "fintrack"

type ctxKey string

const configContextKey ctxKey = "fintrack.config"

type Config struct {
	// HTTP Server
	Port            string        `yaml:"port"            envconfig:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
	CORSOrigins     string        `yaml:"corsOrigins"     split_words:"true"`

	// Database
	DBPath string `yaml:"dbPath" split_words:"true"`

	// AMQP; an empty URL disables messaging and totals are refreshed inline.
	AMQPURL      string `yaml:"amqpUrl"      envconfig:"AMQP_URL"`
	AMQPExchange string `yaml:"amqpExchange" envconfig:"AMQP_EXCHANGE"`
	AMQPQueue    string `yaml:"amqpQueue"    envconfig:"AMQP_QUEUE"`

	// Logging
	LogLevel  string `yaml:"logLevel"  split_words:"true"`
	LogFormat string `yaml:"logFormat" split_words:"true"`

	// Rate limiting of mutating requests, per client IP.
	RateLimit       int           `yaml:"rateLimit"       split_words:"true"`
	RateLimitWindow time.Duration `yaml:"rateLimitWindow" split_words:"true"`

	// Read cache
	CacheSize int           `yaml:"cacheSize" split_words:"true"`
	CacheTTL  time.Duration `yaml:"cacheTtl"  envconfig:"CACHE_TTL"`

	// Receipt OCR; no key means image uploads are refused.
	GeminiAPIKey string `yaml:"geminiApiKey" envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `yaml:"geminiModel"  envconfig:"GEMINI_MODEL"`

	// Display currency for summaries.
	Currency string `yaml:"currency" split_words:"true"`

	// Worker
	ReconcileInterval time.Duration `yaml:"reconcileInterval" split_words:"true"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:              "8081",
		ShutdownTimeout:   30 * time.Second,
		CORSOrigins:       "*",
		DBPath:            "./Storage/finance.db",
		AMQPExchange:      "fintrack",
		AMQPQueue:         "daily_totals",
		LogLevel:          "info",
		LogFormat:         "text",
		RateLimit:         60,
		RateLimitWindow:   time.Minute,
		CacheSize:         256,
		CacheTTL:          30 * time.Second,
		GeminiModel:       "gemini-2.5-flash",
		Currency:          "MYR",
		ReconcileInterval: time.Hour,
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. A .env file in the working directory is loaded
// first when present.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// AMQPEnabled reports whether transaction events go through the broker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DBPath) == "" {
		errors = append(errors, "database path cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit))
	}
	if c.RateLimitWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate limit window %v: must be at least 1 second", c.RateLimitWindow))
	}

	if c.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must not be negative", c.CacheSize))
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive when caching is enabled", c.CacheTTL))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if c.ReconcileInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 minute", c.ReconcileInterval))
	} else if c.ReconcileInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at most 24 hours", c.ReconcileInterval))
	}

	if len(c.Currency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be a 3-letter ISO code", c.Currency))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

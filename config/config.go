// Package config loads the service configuration from YAML with environment
// overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pageforge-dev/pageforge/core"
)

// Models selects the model id per strategy tier.
type Models struct {
	// Fast serves analysis passes and the lightweight agents.
	Fast string `yaml:"fast"`
	// Balanced serves the structural generation passes.
	Balanced string `yaml:"balanced"`
}

// Retry parameterizes the shared backoff policy.
type Retry struct {
	MaxAttempts     uint64        `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Multiplier      float64       `yaml:"multiplier"`
}

// RateLimits caps model dispatch across all concurrent sessions.
type RateLimits struct {
	PerMinute int           `yaml:"per_minute"`
	PerHour   int           `yaml:"per_hour"`
	MaxWait   time.Duration `yaml:"max_wait"`
}

// Redis configures the optional shared budget backend. When Addr is empty
// the in-process budget is used.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Retrieval tunes the context retrieval step.
type Retrieval struct {
	TopK int `yaml:"top_k"`
}

// Logging selects output format and verbosity.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// Config is the full service configuration.
type Config struct {
	// Provider is "anthropic" or "openai".
	Provider string `yaml:"provider"`
	// APIKey may be left empty; the provider SDK then reads its usual
	// environment variable.
	APIKey string `yaml:"api_key"`

	Models     Models     `yaml:"models"`
	Retry      Retry      `yaml:"retry"`
	RateLimits RateLimits `yaml:"rate_limits"`
	Redis      Redis      `yaml:"redis"`
	Retrieval  Retrieval  `yaml:"retrieval"`
	Logging    Logging    `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Provider: "anthropic",
		Models: Models{
			Fast:     "claude-3-5-haiku-latest",
			Balanced: "claude-3-5-sonnet-latest",
		},
		Retry: Retry{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     30 * time.Second,
			Multiplier:      2.0,
		},
		RateLimits: RateLimits{
			PerMinute: 20,
			PerHour:   300,
			MaxWait:   10 * time.Second,
		},
		Retrieval: Retrieval{TopK: 10},
		Logging:   Logging{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file over the defaults. PAGEFORGE_API_KEY overrides the
// file's api_key so credentials can stay out of checked-in config.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if key := os.Getenv("PAGEFORGE_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the coordinator cannot run with.
func (c *Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai":
	default:
		return core.NewValidationError("provider", fmt.Sprintf("unsupported provider %q", c.Provider))
	}
	if c.Models.Fast == "" || c.Models.Balanced == "" {
		return core.NewValidationError("models", "fast and balanced model ids are required")
	}
	if c.Retry.MaxAttempts == 0 {
		return core.NewValidationError("retry.max_attempts", "must be at least 1")
	}
	if c.RateLimits.PerMinute < 0 || c.RateLimits.PerHour < 0 {
		return core.NewValidationError("rate_limits", "limits must not be negative")
	}
	if c.Retrieval.TopK <= 0 {
		return core.NewValidationError("retrieval.top_k", "must be positive")
	}
	return nil
}

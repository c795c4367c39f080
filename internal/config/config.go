// Package config loads runtime configuration from the environment and an
// optional .env file. The API key and base URL are required; everything else
// has defaults tuned for the assessment API's observed flakiness.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIKey  string `mapstructure:"API_KEY"`
	BaseURL string `mapstructure:"BASE_URL"`
	Env     string `mapstructure:"ENV"`

	// PageSize should stay at the remote API's maximum page size; smaller
	// values only multiply the number of rate-limited requests.
	PageSize    int `mapstructure:"PAGE_SIZE"`
	PageDelayMs int `mapstructure:"PAGE_DELAY_MS"`

	FetchRetries      int `mapstructure:"FETCH_RETRIES"`
	FetchBaseDelayMs  int `mapstructure:"FETCH_BASE_DELAY_MS"`
	SubmitRetries     int `mapstructure:"SUBMIT_RETRIES"`
	SubmitBaseDelayMs int `mapstructure:"SUBMIT_BASE_DELAY_MS"`

	HTTPTimeoutSec int    `mapstructure:"HTTP_TIMEOUT_SEC"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("PAGE_SIZE", 20)
	v.SetDefault("PAGE_DELAY_MS", 250)
	v.SetDefault("FETCH_RETRIES", 6)
	v.SetDefault("FETCH_BASE_DELAY_MS", 500)
	v.SetDefault("SUBMIT_RETRIES", 4)
	v.SetDefault("SUBMIT_BASE_DELAY_MS", 2000)
	v.SetDefault("HTTP_TIMEOUT_SEC", 15)
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("API_KEY")
	v.BindEnv("BASE_URL")
	v.BindEnv("ENV")
	v.BindEnv("PAGE_SIZE")
	v.BindEnv("PAGE_DELAY_MS")
	v.BindEnv("FETCH_RETRIES")
	v.BindEnv("FETCH_BASE_DELAY_MS")
	v.BindEnv("SUBMIT_RETRIES")
	v.BindEnv("SUBMIT_BASE_DELAY_MS")
	v.BindEnv("HTTP_TIMEOUT_SEC")
	v.BindEnv("LOG_LEVEL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BASE_URL is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// PageDelay is the fixed pacing delay between page fetches.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

// FetchBaseDelay is the initial backoff for the patient-fetch retry policy.
func (c *Config) FetchBaseDelay() time.Duration {
	return time.Duration(c.FetchBaseDelayMs) * time.Millisecond
}

// SubmitBaseDelay is the initial backoff for the submission retry policy.
func (c *Config) SubmitBaseDelay() time.Duration {
	return time.Duration(c.SubmitBaseDelayMs) * time.Millisecond
}

// HTTPTimeout is the per-request timeout for the underlying HTTP client.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/avvvet/theaterbuddy-intent/internal/errors"
)

const (
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	// Service configuration
	ServiceName string `mapstructure:"service_name" validate:"required"`

	// LLM configuration
	LLMProvider     string        `mapstructure:"llm_provider" validate:"oneof=google openai anthropic"`
	GoogleAPIKey    string        `mapstructure:"google_api_key"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	LLMModel        string        `mapstructure:"llm_model"`
	LLMTemperature  float64       `mapstructure:"llm_temperature" validate:"gte=0,lte=2"`
	LLMMaxTokens    int           `mapstructure:"llm_max_tokens" validate:"gt=0"`
	LLMTimeout      time.Duration `mapstructure:"llm_timeout" validate:"gt=0"`

	// Dialogue history
	HistoryMaxTurns int           `mapstructure:"history_max_turns" validate:"gte=0"`
	RedisURL        string        `mapstructure:"redis_url"`
	SessionTTL      time.Duration `mapstructure:"session_ttl" validate:"gt=0"`

	// NATS configuration
	NatsURL            string        `mapstructure:"nats_url" validate:"required"`
	NatsRequestSubject string        `mapstructure:"nats_request_subject" validate:"required"`
	NatsTimeout        time.Duration `mapstructure:"nats_timeout" validate:"gt=0"`

	// Observability
	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `mapstructure:"log_format" validate:"oneof=console json"`

	// Intent catalog override; empty means the embedded catalog.
	CatalogFile string `mapstructure:"catalog_file"`
}

var defaultModels = map[string]string{
	ProviderGoogle:    "gemini-1.5-flash-latest",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-sonnet-20241022",
}

var apiKeyEnv = map[string]string{
	ProviderGoogle:    "GOOGLE_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

var defaults = map[string]any{
	"service_name":         "theaterbuddy-intent",
	"llm_provider":         ProviderGoogle,
	"llm_temperature":      0.0,
	"llm_max_tokens":       1000,
	"llm_timeout":          "30s",
	"history_max_turns":    10,
	"session_ttl":          "30m",
	"nats_url":             "nats://localhost:4222",
	"nats_request_subject": "theater.intent.analyze",
	"nats_timeout":         "30s",
	"metrics_addr":         ":9090",
	"log_level":            "warn",
	"log_format":           "console",
}

// Load reads .env (when present), an optional YAML config file and the
// environment, in increasing order of precedence. configFile may be empty.
func Load(configFile string) (*Config, error) {
	// .env is optional; the process environment always wins.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key := range defaults {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	for _, key := range []string{"google_api_key", "openai_api_key", "anthropic_api_key", "llm_model", "redis_url", "catalog_file"} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModels[cfg.LLMProvider]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that the selected provider has an
// API key.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError(err.Error())
	}
	if c.APIKey() == "" {
		return apperrors.NewConfigError(fmt.Sprintf("%s environment variable is required", apiKeyEnv[c.LLMProvider]))
	}
	return nil
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderGoogle:
		return c.GoogleAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	}
	return ""
}

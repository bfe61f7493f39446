package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/avvvet/theaterbuddy-intent/internal/config"
	apperrors "github.com/avvvet/theaterbuddy-intent/internal/errors"
)

// NewModel builds the langchaingo model for the configured provider.
func NewModel(ctx context.Context, cfg *config.Config) (llms.Model, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, apperrors.NewConfigError(fmt.Sprintf("no API key for provider %s", cfg.LLMProvider))
	}

	switch cfg.LLMProvider {
	case config.ProviderGoogle:
		model, err := googleai.New(ctx,
			googleai.WithAPIKey(apiKey),
			googleai.WithDefaultModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google AI client: %w", err)
		}
		return model, nil

	case config.ProviderOpenAI:
		model, err := openai.New(
			openai.WithToken(apiKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return model, nil

	case config.ProviderAnthropic:
		model, err := anthropic.New(
			anthropic.WithToken(apiKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return model, nil
	}

	return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported LLM provider %q", cfg.LLMProvider))
}

// NewClientFromConfig wires a model and its call options from config.
func NewClientFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	model, err := NewModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(model, Options{
		Provider:    cfg.LLMProvider,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	}, logger), nil
}

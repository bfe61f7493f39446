package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/avvvet/theaterbuddy-intent/internal/config"
	apperrors "github.com/avvvet/theaterbuddy-intent/internal/errors"
	"github.com/avvvet/theaterbuddy-intent/internal/llm/llmtest"
	"github.com/avvvet/theaterbuddy-intent/internal/metrics"
)

func testRequest() *LLMRequest {
	return &LLMRequest{
		Messages: []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, "system"),
			llms.TextParts(llms.ChatMessageTypeHuman, "Book 2 tickets for Hamlet"),
		},
		Tools: []llms.Tool{{
			Type:     "function",
			Function: &llms.FunctionDefinition{Name: "BookTicketParameters"},
		}},
	}
}

func TestGenerateToolCall(t *testing.T) {
	model := llmtest.NewFakeModel().ReplyToolCall(llmtest.ToolCallSpec{
		Name: "BookTicketParameters",
		Args: map[string]any{"show_name": "Hamlet", "num_tickets": 2},
	})
	client := NewClient(model, Options{Provider: "google", Temperature: 0, MaxTokens: 500}, nil)

	resp, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.True(t, resp.HasToolCalls())
	require.Len(t, resp.ToolCalls, 1)

	call := resp.ToolCalls[0]
	assert.Equal(t, "BookTicketParameters", call.Name)
	assert.Equal(t, "Hamlet", call.Arguments["show_name"])
	assert.Equal(t, float64(2), call.Arguments["num_tickets"])
	assert.JSONEq(t, `{"show_name":"Hamlet","num_tickets":2}`, call.RawArguments)

	sent := model.LastCall()
	assert.Len(t, sent.Messages, 2)
	assert.Equal(t, 500, sent.Options.MaxTokens)
	assert.Equal(t, 0.0, sent.Options.Temperature)
	require.Len(t, sent.Options.Tools, 1)
	assert.Equal(t, "BookTicketParameters", sent.Options.Tools[0].Function.Name)
}

func TestGenerateText(t *testing.T) {
	model := llmtest.NewFakeModel().ReplyText("greet")
	client := NewClient(model, Options{Provider: "google"}, nil)

	resp, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.False(t, resp.HasToolCalls())
	assert.Equal(t, "greet", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
}

func TestGenerateLegacyFunctionCall(t *testing.T) {
	model := llmtest.NewFakeModel().Reply(&llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			FuncCall: &llms.FunctionCall{Name: "GetTheaterInfoParameters", Arguments: `{"info_type":"parking"}`},
		}},
	})
	client := NewClient(model, Options{Provider: "openai"}, nil)

	resp, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "parking", resp.ToolCalls[0].Arguments["info_type"])
}

func TestGenerateEmptyArguments(t *testing.T) {
	model := llmtest.NewFakeModel().Reply(&llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				FunctionCall: &llms.FunctionCall{Name: "RequestRecommendationParameters"},
			}},
		}},
	})
	client := NewClient(model, Options{}, nil)

	resp, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.NotNil(t, resp.ToolCalls[0].Arguments)
	assert.Empty(t, resp.ToolCalls[0].Arguments)
}

func TestGenerateParseErrors(t *testing.T) {
	tests := map[string]*llms.ContentResponse{
		"no choices": {},
		"bad arguments": {Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				FunctionCall: &llms.FunctionCall{Name: "BookTicketParameters", Arguments: "{not json"},
			}},
		}}},
	}
	for name, resp := range tests {
		t.Run(name, func(t *testing.T) {
			client := NewClient(llmtest.NewFakeModel().Reply(resp), Options{}, nil)
			_, err := client.Generate(context.Background(), testRequest())
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeParseError, apperrors.CodeOf(err))
		})
	}
}

func TestGenerateTransportFailure(t *testing.T) {
	client := NewClient(llmtest.NewFakeModel().Fail(errors.New("503 service unavailable")), Options{Provider: "google"}, nil)

	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeLLMFailed, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "503 service unavailable")
}

func TestGenerateCountsFailures(t *testing.T) {
	failed := metrics.LLMRequestsFailed.WithLabelValues("failcount", "LLM_API_FAILED")
	unparsed := metrics.LLMRequestsFailed.WithLabelValues("failcount", "PARSE_ERROR")
	before, beforeParse := testutil.ToFloat64(failed), testutil.ToFloat64(unparsed)

	model := llmtest.NewFakeModel().
		Fail(errors.New("quota exceeded")).
		Reply(&llms.ContentResponse{}).
		ReplyText("greet")
	client := NewClient(model, Options{Provider: "failcount"}, nil)

	for i := 0; i < 3; i++ {
		_, _ = client.Generate(context.Background(), testRequest())
	}

	assert.Equal(t, before+1, testutil.ToFloat64(failed))
	assert.Equal(t, beforeParse+1, testutil.ToFloat64(unparsed))
}

func TestGenerateTimeout(t *testing.T) {
	client := NewClient(llmtest.NewFakeModel().ReplyText("greet"), Options{Provider: "google", Timeout: time.Second}, nil)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := client.Generate(ctx, testRequest())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeLLMTimeout, apperrors.CodeOf(err))
}

func TestNewModel(t *testing.T) {
	ctx := context.Background()

	_, err := NewModel(ctx, &config.Config{LLMProvider: config.ProviderOpenAI, OpenAIAPIKey: "sk-test", LLMModel: "gpt-4o-mini"})
	assert.NoError(t, err)

	_, err = NewModel(ctx, &config.Config{LLMProvider: config.ProviderAnthropic, AnthropicAPIKey: "ak-test", LLMModel: "claude-3-5-sonnet-20241022"})
	assert.NoError(t, err)

	_, err = NewModel(ctx, &config.Config{LLMProvider: config.ProviderGoogle})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.CodeOf(err))

	_, err = NewModel(ctx, &config.Config{LLMProvider: "mistral"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.CodeOf(err))
}

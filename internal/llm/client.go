package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	apperrors "github.com/avvvet/theaterbuddy-intent/internal/errors"
	"github.com/avvvet/theaterbuddy-intent/internal/metrics"
)

// Options tune each model call.
type Options struct {
	Provider    string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client sends tool-calling chat requests through a langchaingo model.
type Client struct {
	model  llms.Model
	opts   Options
	logger *zap.Logger
}

func NewClient(model llms.Model, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		model:  model,
		opts:   opts,
		logger: logger,
	}
}

func (c *Client) callOptions(request *LLMRequest) []llms.CallOption {
	callOpts := []llms.CallOption{
		llms.WithTemperature(c.opts.Temperature),
	}
	if c.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.opts.MaxTokens))
	}
	if len(request.Tools) > 0 {
		callOpts = append(callOpts, llms.WithTools(request.Tools))
	}
	return callOpts
}

// Generate performs a single model call bounded by the configured timeout.
func (c *Client) Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, request.Messages, c.callOptions(request)...)
	metrics.LLMRequestDuration.WithLabelValues(c.opts.Provider).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		llmErr := apperrors.NewLLMError(c.opts.Provider, err)
		metrics.LLMRequestsFailed.WithLabelValues(c.opts.Provider, string(llmErr.Code)).Inc()
		return nil, llmErr
	}

	out, err := fromContentResponse(resp)
	if err != nil {
		metrics.LLMRequestsFailed.WithLabelValues(c.opts.Provider, string(apperrors.CodeOf(err))).Inc()
		return nil, err
	}

	c.logger.Debug("model responded",
		zap.String("provider", c.opts.Provider),
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.String("stop_reason", out.StopReason),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// fromContentResponse converts the first choice into an LLMResponse and
// decodes tool arguments.
func fromContentResponse(resp *llms.ContentResponse) (*LLMResponse, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, apperrors.NewParseError("model returned no choices")
	}

	choice := resp.Choices[0]
	out := &LLMResponse{
		Content:    choice.Content,
		StopReason: choice.StopReason,
	}

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		args, err := decodeArguments(tc.FunctionCall.Arguments)
		if err != nil {
			return nil, apperrors.NewParseError(fmt.Sprintf("tool %s: %v", tc.FunctionCall.Name, err))
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:           tc.ID,
			Name:         tc.FunctionCall.Name,
			Arguments:    args,
			RawArguments: tc.FunctionCall.Arguments,
		})
	}

	// Older providers report a single function call instead of tool calls.
	if len(out.ToolCalls) == 0 && choice.FuncCall != nil {
		args, err := decodeArguments(choice.FuncCall.Arguments)
		if err != nil {
			return nil, apperrors.NewParseError(fmt.Sprintf("function %s: %v", choice.FuncCall.Name, err))
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			Name:         choice.FuncCall.Name,
			Arguments:    args,
			RawArguments: choice.FuncCall.Arguments,
		})
	}

	return out, nil
}

func decodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

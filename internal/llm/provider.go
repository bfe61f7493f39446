package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// LLMProvider defines the interface for model access used by the handlers
type LLMProvider interface {
	Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error)
}

// LLMRequest represents one outbound chat completion with tools
type LLMRequest struct {
	Messages []llms.MessageContent
	Tools    []llms.Tool
}

// LLMResponse represents the model's answer: text, tool calls or both
type LLMResponse struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
}

// ToolCall is a decoded tool invocation
type ToolCall struct {
	ID           string
	Name         string
	Arguments    map[string]any
	RawArguments string
}

// HasToolCalls reports whether the model invoked at least one tool
func (r *LLMResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

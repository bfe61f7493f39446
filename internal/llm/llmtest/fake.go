// Package llmtest provides a scripted langchaingo model for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeModel replays queued responses and records what it was sent.
type FakeModel struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	errs      []error

	Calls []Call
}

// Call is one recorded GenerateContent invocation.
type Call struct {
	Messages []llms.MessageContent
	Options  llms.CallOptions
}

var _ llms.Model = (*FakeModel)(nil)

// ErrNoResponse is returned when the script is exhausted.
var ErrNoResponse = errors.New("llmtest: no scripted response")

func NewFakeModel() *FakeModel {
	return &FakeModel{}
}

// ReplyText queues a plain-text answer.
func (f *FakeModel) ReplyText(content string) *FakeModel {
	return f.Reply(&llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content, StopReason: "stop"}},
	})
}

// ReplyToolCall queues an answer invoking one tool per entry in calls, in order.
func (f *FakeModel) ReplyToolCall(calls ...ToolCallSpec) *FakeModel {
	choice := &llms.ContentChoice{StopReason: "tool_calls"}
	for i, c := range calls {
		args, _ := json.Marshal(c.Args)
		choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
			ID:   "call_" + string(rune('a'+i)),
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      c.Name,
				Arguments: string(args),
			},
		})
	}
	return f.Reply(&llms.ContentResponse{Choices: []*llms.ContentChoice{choice}})
}

// ToolCallSpec names a tool and its arguments.
type ToolCallSpec struct {
	Name string
	Args map[string]any
}

// Reply queues a raw response.
func (f *FakeModel) Reply(resp *llms.ContentResponse) *FakeModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	f.errs = append(f.errs, nil)
	return f
}

// Fail queues an error.
func (f *FakeModel) Fail(err error) *FakeModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, nil)
	f.errs = append(f.errs, err)
	return f
}

func (f *FakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Messages: messages, Options: opts})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.responses) == 0 {
		return nil, ErrNoResponse
	}
	resp, err := f.responses[0], f.errs[0]
	f.responses, f.errs = f.responses[1:], f.errs[1:]
	return resp, err
}

func (f *FakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

// LastCall returns the most recent invocation.
func (f *FakeModel) LastCall() Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Calls) == 0 {
		return Call{}
	}
	return f.Calls[len(f.Calls)-1]
}

package models

// IntentRequest is one user utterance to classify, from the CLI or NATS.
type IntentRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
	// ConversationHistory, when present, replaces the stored session history.
	ConversationHistory []ConversationMessage `json:"conversation_history,omitempty"`
}

type ConversationMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Message string `json:"message"`
}

// ToolInvocation is one schema the model chose to fill.
type ToolInvocation struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// IntentResponse is the outcome of one turn.
type IntentResponse struct {
	SessionID string `json:"session_id"`
	Intent    string `json:"intent"`
	Source    string `json:"source"` // "tool", "text" or "" on error
	Status    string `json:"status"` // "NEEDS_INFO", "READY", "ERROR"

	// Parameters of the recognized intent; the last tool call when the
	// model made several.
	Parameters        map[string]any   `json:"parameters"`
	ToolCalls         []ToolInvocation `json:"tool_calls,omitempty"`
	MissingParameters []string         `json:"missing_parameters,omitempty"`
	Issues            []string         `json:"issues,omitempty"`

	// Reply is the model's text when it did not call a tool.
	Reply          string `json:"reply,omitempty"`
	HistoryTrimmed bool   `json:"history_trimmed"`

	ErrorCode    *string `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Status constants
const (
	StatusNeedsInfo = "NEEDS_INFO"
	StatusReady     = "READY"
	StatusError     = "ERROR"
)

// Intent sources
const (
	SourceTool = "tool"
	SourceText = "text"
)

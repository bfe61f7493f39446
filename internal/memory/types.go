package memory

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single turn in a conversation
type Message struct {
	Role      string    `json:"role"`      // "user" or "assistant"
	Content   string    `json:"content"`   // The turn text, or a tool call summary
	Timestamp time.Time `json:"timestamp"` // When the turn was recorded
}

// SessionData represents all data for a conversation session
type SessionData struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
	Metadata  Metadata  `json:"metadata"`
}

// Metadata contains session information
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Store defines the interface for conversation storage.
// MemoryStore backs the interactive CLI; RedisStore backs shared deployments.
type Store interface {
	// LoadSession loads a session, returning an empty one if it does not exist
	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)

	// SaveMessage appends a message to a session
	SaveMessage(ctx context.Context, sessionID, userID string, msg Message) error

	// GetMessages retrieves all messages for a session
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// TrimSession keeps only the last keep messages of a session
	TrimSession(ctx context.Context, sessionID string, keep int) error

	// ClearSession removes a session from storage
	ClearSession(ctx context.Context, sessionID string) error

	// SessionExists checks if a session exists
	SessionExists(ctx context.Context, sessionID string) (bool, error)

	// UpdateActivity updates the last activity timestamp
	UpdateActivity(ctx context.Context, sessionID string) error
}

func newSessionData(sessionID string) *SessionData {
	now := time.Now()
	return &SessionData{
		SessionID: sessionID,
		Messages:  []Message{},
		Metadata: Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
}

// appendMessage applies the shared append bookkeeping used by every store.
func appendMessage(session *SessionData, userID string, msg Message) {
	if session.UserID == "" {
		session.UserID = userID
	}
	session.Messages = append(session.Messages, msg)
	session.Metadata.LastActivity = time.Now()
	session.Metadata.MessageCount = len(session.Messages)
	if session.Metadata.MessageCount == 1 {
		session.Metadata.StartedAt = msg.Timestamp
	}
}

// trimMessages keeps the trailing keep messages. keep <= 0 leaves the
// session untouched. It reports whether anything was dropped.
func trimMessages(session *SessionData, keep int) bool {
	if keep <= 0 || len(session.Messages) <= keep {
		return false
	}
	kept := make([]Message, keep)
	copy(kept, session.Messages[len(session.Messages)-keep:])
	session.Messages = kept
	session.Metadata.MessageCount = keep
	return true
}

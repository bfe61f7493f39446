package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"go.uber.org/zap"

	apperrors "github.com/avvvet/theaterbuddy-intent/internal/errors"
	"github.com/avvvet/theaterbuddy-intent/internal/metrics"
	"github.com/avvvet/theaterbuddy-intent/internal/models"
)

// EmptyHistory is rendered in place of the history when a session has no turns.
const EmptyHistory = "No previous conversation."

// Manager keeps a LangChainGo conversation buffer per session on top of a
// Store, bounded to the last maxTurns user/assistant pairs.
type Manager struct {
	mu            sync.Mutex
	store         Store
	sessions      map[string]*memory.ConversationBuffer
	maxTurns      int
	defaultUserID string
	logger        *zap.Logger
}

// NewManager creates a memory manager. maxTurns <= 0 keeps the whole history.
func NewManager(store Store, maxTurns int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:         store,
		sessions:      make(map[string]*memory.ConversationBuffer),
		maxTurns:      maxTurns,
		defaultUserID: "default_user",
		logger:        logger,
	}
}

// MaxMessages is the window size in messages, or 0 when unbounded.
func (m *Manager) MaxMessages() int {
	if m.maxTurns <= 0 {
		return 0
	}
	return m.maxTurns * 2
}

// GetOrCreateSession returns the cached buffer for a session, loading it
// from the store on first use.
func (m *Manager) GetOrCreateSession(ctx context.Context, sessionID string) (*memory.ConversationBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(ctx, sessionID)
}

func (m *Manager) getOrCreateLocked(ctx context.Context, sessionID string) (*memory.ConversationBuffer, error) {
	if mem, exists := m.sessions[sessionID]; exists {
		return mem, nil
	}

	mem := memory.NewConversationBuffer()

	sessionData, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.NewStorageError("load session", err)
	}

	messages := sessionData.Messages
	if limit := m.MaxMessages(); limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	for _, msg := range messages {
		chatMsg, ok := toChatMessage(msg.Role, msg.Content)
		if !ok {
			m.logger.Warn("skipping message with unknown role",
				zap.String("session_id", sessionID), zap.String("role", msg.Role))
			continue
		}
		if err := mem.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return nil, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}

	m.sessions[sessionID] = mem
	metrics.ActiveSessions.Set(float64(len(m.sessions)))

	m.logger.Debug("loaded session",
		zap.String("session_id", sessionID), zap.Int("messages", len(messages)))
	return mem, nil
}

func toChatMessage(role, content string) (llms.ChatMessage, bool) {
	switch role {
	case RoleUser:
		return llms.HumanChatMessage{Content: content}, true
	case RoleAssistant:
		return llms.AIChatMessage{Content: content}, true
	case RoleSystem:
		return llms.SystemChatMessage{Content: content}, true
	}
	return nil, false
}

// AppendTurn records a user message and the assistant's understanding of
// it, then trims the session to the window. It reports whether a trim
// happened.
func (m *Manager) AppendTurn(ctx context.Context, sessionID, userMessage, assistantMessage string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, err := m.getOrCreateLocked(ctx, sessionID)
	if err != nil {
		return false, err
	}

	// The store is written first; the cached buffer only sees turns the
	// store accepted. On failure the cache is dropped and reloaded next time.
	now := time.Now()
	for _, msg := range []Message{
		{Role: RoleUser, Content: userMessage, Timestamp: now},
		{Role: RoleAssistant, Content: assistantMessage, Timestamp: now},
	} {
		if err := m.store.SaveMessage(ctx, sessionID, m.defaultUserID, msg); err != nil {
			m.evictLocked(sessionID)
			return false, apperrors.NewStorageError("save message", err)
		}
	}

	if err := mem.ChatHistory.AddUserMessage(ctx, userMessage); err != nil {
		m.evictLocked(sessionID)
		return false, fmt.Errorf("failed to add user message to memory: %w", err)
	}
	if err := mem.ChatHistory.AddAIMessage(ctx, assistantMessage); err != nil {
		m.evictLocked(sessionID)
		return false, fmt.Errorf("failed to add AI message to memory: %w", err)
	}

	return m.trimLocked(ctx, sessionID, mem)
}

func (m *Manager) evictLocked(sessionID string) {
	delete(m.sessions, sessionID)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
}

func (m *Manager) trimLocked(ctx context.Context, sessionID string, mem *memory.ConversationBuffer) (bool, error) {
	limit := m.MaxMessages()
	if limit == 0 {
		return false, nil
	}

	messages, err := mem.ChatHistory.Messages(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get messages: %w", err)
	}
	if len(messages) <= limit {
		return false, nil
	}

	kept := messages[len(messages)-limit:]
	if err := mem.ChatHistory.Clear(ctx); err != nil {
		return false, fmt.Errorf("failed to clear memory: %w", err)
	}
	for _, msg := range kept {
		if err := mem.ChatHistory.AddMessage(ctx, msg); err != nil {
			return false, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}
	if err := m.store.TrimSession(ctx, sessionID, limit); err != nil {
		return false, apperrors.NewStorageError("trim session", err)
	}

	metrics.HistoryTrims.Inc()
	m.logger.Debug("trimmed dialogue history",
		zap.String("session_id", sessionID), zap.Int("kept", limit))
	return true, nil
}

// LoadHistory replaces a session's history with one supplied by a caller,
// e.g. a backend that owns the conversation.
func (m *Manager) LoadHistory(ctx context.Context, sessionID string, history []models.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return apperrors.NewStorageError("clear session", err)
	}
	delete(m.sessions, sessionID)

	mem, err := m.getOrCreateLocked(ctx, sessionID)
	if err != nil {
		return err
	}

	loaded := 0
	now := time.Now()
	for _, msg := range history {
		chatMsg, ok := toChatMessage(msg.Role, msg.Message)
		if !ok || msg.Role == RoleSystem {
			continue
		}
		if err := mem.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return fmt.Errorf("failed to add message: %w", err)
		}
		stored := Message{Role: msg.Role, Content: msg.Message, Timestamp: now}
		if err := m.store.SaveMessage(ctx, sessionID, m.defaultUserID, stored); err != nil {
			return apperrors.NewStorageError("save message", err)
		}
		loaded++
	}

	if _, err := m.trimLocked(ctx, sessionID, mem); err != nil {
		return err
	}

	m.logger.Debug("loaded history from request",
		zap.String("session_id", sessionID), zap.Int("messages", loaded))
	return nil
}

// GetFormattedHistory renders the session as "User:"/"Assistant:" lines
// for the prompt.
func (m *Manager) GetFormattedHistory(ctx context.Context, sessionID string) (string, error) {
	mem, err := m.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	messages, err := mem.ChatHistory.Messages(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}
	if len(messages) == 0 {
		return EmptyHistory, nil
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg.(type) {
		case llms.HumanChatMessage:
			b.WriteString("User: ")
		case llms.AIChatMessage:
			b.WriteString("Assistant: ")
		case llms.SystemChatMessage:
			b.WriteString("System: ")
		default:
			continue
		}
		b.WriteString(msg.GetContent())
		b.WriteString("\n")
	}
	return b.String(), nil
}

// GetMessages returns the stored messages of a session
func (m *Manager) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	return m.store.GetMessages(ctx, sessionID)
}

// ClearSession drops a session from the cache and the store
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return apperrors.NewStorageError("clear session", err)
	}
	return nil
}

// SessionExists checks if a session exists in the store
func (m *Manager) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	return m.store.SessionExists(ctx, sessionID)
}

// ActiveSessionCount returns the number of cached sessions
func (m *Manager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes the underlying store when it holds resources
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

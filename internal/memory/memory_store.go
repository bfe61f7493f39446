package memory

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions live as long as
// the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*SessionData)}
}

// LoadSession returns a copy of the stored session or a fresh empty one.
func (s *MemoryStore) LoadSession(_ context.Context, sessionID string) (*SessionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return newSessionData(sessionID), nil
	}
	cp := *session
	cp.Messages = append([]Message(nil), session.Messages...)
	return &cp, nil
}

func (s *MemoryStore) SaveMessage(_ context.Context, sessionID, userID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		session = newSessionData(sessionID)
		s.sessions[sessionID] = session
	}
	appendMessage(session, userID, msg)
	return nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	session, err := s.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

func (s *MemoryStore) TrimSession(_ context.Context, sessionID string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[sessionID]; ok {
		trimMessages(session, keep)
	}
	return nil
}

func (s *MemoryStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) SessionExists(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[sessionID]
	return ok, nil
}

func (s *MemoryStore) UpdateActivity(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[sessionID]; ok {
		session.Metadata.LastActivity = time.Now()
	}
	return nil
}

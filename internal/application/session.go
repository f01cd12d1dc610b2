package application

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-mate/internal/domain"
)

// Session owns the conversation state of one user session: the rendered
// history and the chat collaborator's context.
type Session struct {
	chat ChatClient

	mu        sync.RWMutex
	id        string
	startedAt time.Time
	conv      Conversation
	history   History
}

func NewSession(chat ChatClient) *Session {
	s := &Session{chat: chat}
	s.start()
	return s
}

func (s *Session) start() {
	s.id = uuid.NewString()
	s.startedAt = time.Now()
	s.conv = s.chat.NewConversation()
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// History returns the turns newest first.
func (s *Session) History() []domain.ChatTurn {
	return s.history.Turns()
}

func (s *Session) conversation() Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv
}

// Close tears the session down: history is cleared and the chat context dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.clear()
	s.conv = nil
}

// Reset ends the current session and begins a new one with a fresh ID.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.clear()
	s.start()
}

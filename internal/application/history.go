package application

import (
	"strings"
	"sync"

	"chat-mate/internal/domain"
)

// History is the ordered turn list of one session, oldest first.
// Only the pipeline appends to it.
type History struct {
	mu    sync.RWMutex
	turns []domain.ChatTurn
}

func (h *History) appendUserTurn(text string) (domain.ChatTurn, bool) {
	if text == "" {
		return domain.ChatTurn{}, false
	}
	return h.append(domain.ChatTurn{Speaker: domain.SpeakerUser, Text: text}), true
}

// appendBotFragment stores the fragment untrimmed, one turn per fragment.
func (h *History) appendBotFragment(text string) (domain.ChatTurn, bool) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatTurn{}, false
	}
	return h.append(domain.ChatTurn{Speaker: domain.SpeakerBot, Text: text}), true
}

func (h *History) append(turn domain.ChatTurn) domain.ChatTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	return turn
}

// Turns returns a newest-first copy for rendering.
func (h *History) Turns() []domain.ChatTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.ChatTurn, len(h.turns))
	for i, t := range h.turns {
		out[len(h.turns)-1-i] = t
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

func (h *History) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

package application

import (
	"context"
	"errors"

	"chat-mate/internal/domain"
)

type EventKind string

const (
	EventState      EventKind = "state"
	EventTranscript EventKind = "transcript"
	EventTurn       EventKind = "turn"
	EventFailure    EventKind = "failure"
	EventReset      EventKind = "reset"
	EventHistory    EventKind = "history"
)

// Event is one update for the presentation layer. Only the fields relevant to
// Kind are set. Index is a turn event's position in the oldest-first history.
type Event struct {
	Kind      EventKind         `json:"kind"`
	SessionID string            `json:"session_id"`
	State     State             `json:"state,omitempty"`
	Text      string            `json:"text,omitempty"`
	Turn      *domain.ChatTurn  `json:"turn,omitempty"`
	Index     int               `json:"index,omitempty"`
	Turns     []domain.ChatTurn `json:"turns,omitempty"`
}

type Presenter interface {
	Present(ctx context.Context, ev Event) error
}

// MultiPresenter fans an event out to every presenter and joins their errors.
type MultiPresenter []Presenter

func (m MultiPresenter) Present(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Present(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

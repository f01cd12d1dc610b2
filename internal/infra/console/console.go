// Package console renders the conversation as plain text lines, for the file
// and microphone sources where no browser is attached.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"chat-mate/internal/application"
)

type Presenter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPresenter(w io.Writer) *Presenter {
	return &Presenter{w: w}
}

func (p *Presenter) Present(_ context.Context, ev application.Event) error {
	var line string
	switch ev.Kind {
	case application.EventTranscript:
		line = "Transcribed Text: " + ev.Text
	case application.EventTurn:
		if ev.Turn == nil {
			return nil
		}
		line = fmt.Sprintf("%s: %s", ev.Turn.Speaker, ev.Turn.Text)
	case application.EventFailure:
		line = "Error: " + ev.Text
	case application.EventState:
		if ev.State != application.StateAwaitingReply {
			return nil
		}
		line = "Generating response from audio..."
	case application.EventReset:
		line = "--- new session " + ev.SessionID + " ---"
	default:
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintln(p.w, line); err != nil {
		return fmt.Errorf("writing to console: %w", err)
	}
	return nil
}

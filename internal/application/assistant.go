package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chat-mate/internal/domain"
)

// Exchange summarizes one pipeline run.
type Exchange struct {
	Transcript domain.TranscriptResult
	Fragments  int
	Appended   int
}

// Assistant drives clips through transcribe, reply and history, one at a time.
type Assistant struct {
	audio       AudioSource
	transcriber *Transcriber
	session     *Session
	presenter   Presenter
	metrics     Metrics
	logger      *slog.Logger

	mu    sync.Mutex
	state atomic.Value
}

func NewAssistant(
	audio AudioSource,
	transcriber *Transcriber,
	session *Session,
	presenter Presenter,
	metrics Metrics,
	logger *slog.Logger,
) *Assistant {
	a := &Assistant{
		audio:       audio,
		transcriber: transcriber,
		session:     session,
		presenter:   presenter,
		metrics:     metrics,
		logger:      logger,
	}
	a.state.Store(StateIdle)
	return a
}

func (a *Assistant) State() State {
	return a.state.Load().(State)
}

func (a *Assistant) SessionID() string {
	return a.session.ID()
}

func (a *Assistant) SessionStartedAt() time.Time {
	return a.session.StartedAt()
}

// History returns the current session's turns, newest first.
func (a *Assistant) History() []domain.ChatTurn {
	return a.session.History()
}

func (a *Assistant) Run(ctx context.Context) error {
	a.logger.Info("starting audio source", "source", a.audio.Name())
	if err := a.audio.Start(ctx); err != nil {
		return fmt.Errorf("starting audio: %w", err)
	}
	defer a.audio.Stop()

	a.logger.Info("assistant ready, waiting for audio", "session_id", a.session.ID())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := a.processOneClip(ctx); err != nil {
				if errors.Is(err, domain.ErrSourceClosed) {
					return err
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.Error("processing clip", "error", err)
			}
		}
	}
}

func (a *Assistant) processOneClip(ctx context.Context) error {
	clip, err := a.audio.NextClip(ctx)
	if err != nil {
		return fmt.Errorf("getting audio: %w", err)
	}

	if clip.Empty() {
		return nil
	}

	_, err = a.Process(ctx, clip)
	return err
}

// Process runs one clip through the whole pipeline and returns to Idle.
// The user turn is always recorded before any bot turn, and the chat service
// is never called when transcription failed.
func (a *Assistant) Process(ctx context.Context, clip domain.AudioClip) (*Exchange, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.setState(ctx, StateIdle)

	a.logger.Info("received audio", "bytes", len(clip.Data), "container", clip.Container)
	a.metrics.ClipReceived(len(clip.Data))

	ex := &Exchange{}

	a.setState(ctx, StateAwaitingTranscript)
	started := time.Now()
	result, err := a.transcriber.Transcribe(ctx, clip)
	if err != nil {
		a.metrics.TranscriptionFinished("decode_fault", time.Since(started))
		a.fail(ctx, "Audio could not be decoded: "+err.Error())
		return ex, fmt.Errorf("transcribing: %w", err)
	}
	a.metrics.TranscriptionFinished(result.Status.String(), time.Since(started))
	ex.Transcript = result

	if !result.OK() {
		a.setState(ctx, StateTranscriptFailed)
		a.fail(ctx, result.Reason())
		if result.Status == domain.TranscriptServiceError {
			return ex, fmt.Errorf("%w: %s", domain.ErrTranscriptFailed, result.Message)
		}
		return ex, fmt.Errorf("%w: %s", domain.ErrTranscriptFailed, result.Status)
	}

	a.logger.Info("transcribed", "text", result.Text)
	a.present(ctx, Event{Kind: EventTranscript, Text: result.Text})

	conv := a.session.conversation()
	if conv == nil {
		return ex, fmt.Errorf("session %s is closed", a.session.ID())
	}

	if turn, ok := a.session.history.appendUserTurn(result.Text); ok {
		ex.Appended++
		a.presentTurn(ctx, turn)
	}

	a.setState(ctx, StateAwaitingReply)
	started = time.Now()

	var streamErr error
	for fragment, err := range conv.StreamReply(ctx, result.Text) {
		if err != nil {
			streamErr = err
			break
		}
		ex.Fragments++
		if turn, ok := a.session.history.appendBotFragment(fragment); ok {
			ex.Appended++
			a.presentTurn(ctx, turn)
		}
	}

	if streamErr != nil {
		replyErr := &domain.ReplyError{Delivered: ex.Fragments, Err: streamErr}
		outcome := "failed"
		msg := "Error generating response: " + streamErr.Error()
		if ex.Fragments > 0 {
			outcome = "interrupted"
			msg = "Response interrupted: " + streamErr.Error()
		}
		a.metrics.ReplyFinished(outcome, ex.Fragments, time.Since(started))
		a.fail(ctx, msg)
		return ex, replyErr
	}

	a.metrics.ReplyFinished("ok", ex.Fragments, time.Since(started))
	a.logger.Info("reply complete", "fragments", ex.Fragments, "turns", a.session.history.Len())
	return ex, nil
}

// ResetSession waits for any running exchange and starts a new session.
func (a *Assistant) ResetSession(ctx context.Context) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	old := a.session.ID()
	a.session.Reset()
	id := a.session.ID()

	a.logger.Info("session reset", "old_session_id", old, "session_id", id)
	a.present(ctx, Event{Kind: EventReset})
	return id
}

func (a *Assistant) setState(ctx context.Context, s State) {
	if a.State() == s {
		return
	}
	a.state.Store(s)
	a.logger.Debug("pipeline state", "state", s)
	a.present(ctx, Event{Kind: EventState, State: s})
}

func (a *Assistant) fail(ctx context.Context, msg string) {
	a.logger.Warn("pipeline failure", "message", msg)
	a.present(ctx, Event{Kind: EventFailure, Text: msg})
}

// presentTurn emits a freshly appended turn with its oldest-first position.
// Only the assistant appends, under a.mu, so Len()-1 is the turn's index.
func (a *Assistant) presentTurn(ctx context.Context, turn domain.ChatTurn) {
	a.present(ctx, Event{Kind: EventTurn, Turn: &turn, Index: a.session.history.Len() - 1})
}

func (a *Assistant) present(ctx context.Context, ev Event) {
	ev.SessionID = a.session.ID()
	if err := a.presenter.Present(ctx, ev); err != nil {
		a.logger.Error("presenting event", "kind", ev.Kind, "error", err)
	}
}

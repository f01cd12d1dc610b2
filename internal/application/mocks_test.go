package application_test

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"sync"
	"testing"

	"chat-mate/internal/application"
	"chat-mate/internal/domain"
	"chat-mate/internal/wav"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func speechClip(t *testing.T) domain.AudioClip {
	t.Helper()
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16((i % 64) * 256)
	}
	data, err := wav.Encode(samples, 16000)
	if err != nil {
		t.Fatalf("encoding clip: %v", err)
	}
	return domain.AudioClip{Data: data, Container: domain.ContainerWAV, SampleRate: 16000}
}

type mockRecognizer struct {
	text  string
	err   error
	calls int
	last  domain.Waveform
}

func (m *mockRecognizer) Recognize(_ context.Context, wf domain.Waveform) (string, error) {
	m.calls++
	m.last = wf
	return m.text, m.err
}

type mockChat struct {
	fragments []string
	// failAfter is the number of fragments yielded before err; negative never fails.
	failAfter int
	err       error

	prompts       []string
	conversations int
}

func (m *mockChat) Name() string { return "mock" }

func (m *mockChat) NewConversation() application.Conversation {
	m.conversations++
	return &mockConversation{chat: m}
}

type mockConversation struct {
	chat *mockChat
}

func (c *mockConversation) StreamReply(_ context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		c.chat.prompts = append(c.chat.prompts, prompt)
		for i, f := range c.chat.fragments {
			if c.chat.failAfter >= 0 && i == c.chat.failAfter {
				yield("", c.chat.err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
		if c.chat.failAfter >= len(c.chat.fragments) {
			yield("", c.chat.err)
		}
	}
}

type recordingPresenter struct {
	mu     sync.Mutex
	events []application.Event
}

func (r *recordingPresenter) Present(_ context.Context, ev application.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPresenter) kinds(kind application.EventKind) []application.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []application.Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type mockAudioSource struct {
	clips []domain.AudioClip
	index int
}

func (m *mockAudioSource) Start(_ context.Context) error { return nil }
func (m *mockAudioSource) Stop() error                   { return nil }
func (m *mockAudioSource) Name() string                  { return "mock" }

func (m *mockAudioSource) NextClip(_ context.Context) (domain.AudioClip, error) {
	if m.index >= len(m.clips) {
		return domain.AudioClip{}, domain.ErrSourceClosed
	}
	clip := m.clips[m.index]
	m.index++
	return clip, nil
}

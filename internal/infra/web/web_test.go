package web_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"chat-mate/internal/application"
	"chat-mate/internal/domain"
	"chat-mate/internal/infra/web"
)

type fakeChat struct {
	id      string
	started time.Time
	state   application.State
	turns   []domain.ChatTurn
	resets  int
}

func (f *fakeChat) SessionID() string           { return f.id }
func (f *fakeChat) SessionStartedAt() time.Time { return f.started }
func (f *fakeChat) State() application.State    { return f.state }
func (f *fakeChat) History() []domain.ChatTurn  { return f.turns }

func (f *fakeChat) ResetSession(context.Context) string {
	f.resets++
	f.id = "session-2"
	f.turns = nil
	return f.id
}

func newServer(t *testing.T, chat *fakeChat) (*web.Hub, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := web.NewHub(logger)

	r := chi.NewRouter()
	web.NewHandler(chat, hub, logger).RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return hub, server
}

func sampleChat() *fakeChat {
	return &fakeChat{
		id:      "session-1",
		started: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
		state:   application.StateIdle,
		turns: []domain.ChatTurn{
			{Speaker: domain.SpeakerBot, Text: "Hello!"},
			{Speaker: domain.SpeakerUser, Text: "hi"},
		},
	}
}

func TestHandler_History(t *testing.T) {
	_, server := newServer(t, sampleChat())

	resp, err := http.Get(server.URL + "/api/history")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		SessionID string            `json:"session_id"`
		Turns     []domain.ChatTurn `json:"turns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	if body.SessionID != "session-1" {
		t.Errorf("session id: got %q", body.SessionID)
	}
	if len(body.Turns) != 2 || body.Turns[0].Speaker != domain.SpeakerBot || body.Turns[1].Text != "hi" {
		t.Errorf("turns: got %+v", body.Turns)
	}
}

func TestHandler_HistoryEmptyIsArray(t *testing.T) {
	_, server := newServer(t, &fakeChat{id: "s"})

	resp, err := http.Get(server.URL + "/api/history")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), `"turns":[]`) {
		t.Errorf("body: got %s", raw)
	}
}

func TestHandler_Reset(t *testing.T) {
	chat := sampleChat()
	_, server := newServer(t, chat)

	resp, err := http.Post(server.URL+"/api/session/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if chat.resets != 1 {
		t.Errorf("resets: got %d, want 1", chat.resets)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["session_id"] != "session-2" {
		t.Errorf("session id: got %q", body["session_id"])
	}
}

func TestHandler_HealthAndIndex(t *testing.T) {
	chat := sampleChat()
	chat.state = application.StateAwaitingReply
	_, server := newServer(t, chat)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	var health map[string]any
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()

	if health["status"] != "ok" || health["state"] != "awaiting_reply" {
		t.Errorf("health: got %v", health)
	}
	if health["session_started_at"] != "2026-10-14T09:30:00Z" {
		t.Errorf("session_started_at: got %v", health["session_started_at"])
	}

	resp, err = http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(page), "Chat-Mate: Voice Chatbot") {
		t.Error("index page missing header")
	}
}

func TestHub_SnapshotThenEvents(t *testing.T) {
	hub, server := newServer(t, sampleChat())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var snapshot application.Event
	if err := wsjson.Read(ctx, conn, &snapshot); err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if snapshot.Kind != application.EventHistory || len(snapshot.Turns) != 2 || snapshot.SessionID != "session-1" {
		t.Fatalf("snapshot: got %+v", snapshot)
	}
	if hub.Clients() != 1 {
		t.Errorf("clients: got %d, want 1", hub.Clients())
	}

	turn := domain.ChatTurn{Speaker: domain.SpeakerBot, Text: "More"}
	events := []application.Event{
		{Kind: application.EventState, State: application.StateAwaitingReply},
		{Kind: application.EventTurn, Turn: &turn},
		{Kind: application.EventFailure, Text: "Response interrupted: boom"},
	}
	for _, ev := range events {
		if err := hub.Present(ctx, ev); err != nil {
			t.Fatalf("present: %v", err)
		}
	}

	for i, want := range events {
		var got application.Event
		if err := wsjson.Read(ctx, conn, &got); err != nil {
			t.Fatalf("reading event %d: %v", i, err)
		}
		if got.Kind != want.Kind || got.Text != want.Text || got.State != want.State {
			t.Errorf("event %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestHub_PresentWithoutClients(t *testing.T) {
	hub := web.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := hub.Present(context.Background(), application.Event{Kind: application.EventReset}); err != nil {
		t.Errorf("present: %v", err)
	}
}

func TestHub_DropsTurnsAlreadyInSnapshot(t *testing.T) {
	hub, server := newServer(t, sampleChat())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var snapshot application.Event
	if err := wsjson.Read(ctx, conn, &snapshot); err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}

	// The snapshot holds two turns; index 1 is the bot turn it already shows.
	shown := domain.ChatTurn{Speaker: domain.SpeakerBot, Text: "Hello!"}
	next := domain.ChatTurn{Speaker: domain.SpeakerBot, Text: "How can I help?"}
	after := domain.ChatTurn{Speaker: domain.SpeakerUser, Text: "fresh start"}
	for _, ev := range []application.Event{
		{Kind: application.EventTurn, Turn: &shown, Index: 1},
		{Kind: application.EventTurn, Turn: &next, Index: 2},
		{Kind: application.EventReset},
		{Kind: application.EventTurn, Turn: &after, Index: 0},
	} {
		hub.Present(ctx, ev)
	}

	var got []string
	for i := 0; i < 3; i++ {
		var ev application.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			t.Fatalf("reading event %d: %v", i, err)
		}
		label := string(ev.Kind)
		if ev.Turn != nil {
			label += ":" + ev.Turn.Text
		}
		got = append(got, label)
	}

	want := []string{"turn:How can I help?", "reset", "turn:fresh start"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("events: got %q, want %q", got, want)
	}
}

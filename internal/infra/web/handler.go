// Package web serves the browser recorder page, the history API and the
// websocket event feed.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"chat-mate/internal/application"
	"chat-mate/internal/domain"
)

// Chat is the view of the running pipeline the web layer needs.
type Chat interface {
	SessionID() string
	SessionStartedAt() time.Time
	State() application.State
	History() []domain.ChatTurn
	ResetSession(ctx context.Context) string
}

type Handler struct {
	chat   Chat
	hub    *Hub
	logger *slog.Logger
}

func NewHandler(chat Chat, hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{chat: chat, hub: hub, logger: logger}
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	Turns     []domain.ChatTurn `json:"turns"`
}

type healthResponse struct {
	Status           string            `json:"status"`
	State            application.State `json:"state"`
	SessionID        string            `json:"session_id"`
	SessionStartedAt time.Time         `json:"session_started_at"`
	Clients          int               `json:"clients"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.index)
	r.Get("/health", h.health)
	r.Get("/ws", h.feed)
	r.Route("/api", func(r chi.Router) {
		r.Get("/history", h.history)
		r.Post("/session/reset", h.reset)
	})
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		State:            h.chat.State(),
		SessionID:        h.chat.SessionID(),
		SessionStartedAt: h.chat.SessionStartedAt(),
		Clients:          h.hub.Clients(),
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	id := h.chat.ResetSession(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("accepting websocket", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	h.logger.Debug("websocket client connected", "remote_addr", r.RemoteAddr)
	h.hub.serve(r.Context(), conn, func() application.Event {
		snap := h.snapshot()
		return application.Event{
			Kind:      application.EventHistory,
			SessionID: snap.SessionID,
			State:     h.chat.State(),
			Turns:     snap.Turns,
		}
	})
}

func (h *Handler) snapshot() historyResponse {
	turns := h.chat.History()
	if turns == nil {
		turns = []domain.ChatTurn{}
	}
	return historyResponse{SessionID: h.chat.SessionID(), Turns: turns}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

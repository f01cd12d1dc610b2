package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"chat-mate/internal/application"
)

const clientBuffer = 64

// Hub fans presenter events out to every connected websocket client.
// A client that falls a full buffer behind is disconnected.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	events chan application.Event
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.events) })
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Present(_ context.Context, ev application.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.events <- ev:
		default:
			h.logger.Warn("websocket client too slow, dropping")
			delete(h.clients, c)
			c.close()
		}
	}
	return nil
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register() *client {
	c := &client{events: make(chan application.Event, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// serve writes snapshot and then every event to conn until the peer goes
// away or ctx ends. The client is registered before the snapshot is taken so
// no event between the two is lost; turn events the snapshot already holds
// are dropped.
func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, snapshot func() application.Event) {
	c := h.register()
	defer h.unregister(c)

	// The page never sends anything; CloseRead handles pings and close frames.
	ctx = conn.CloseRead(ctx)

	snap := snapshot()
	if err := writeEvent(ctx, conn, snap); err != nil {
		h.logger.Debug("writing history snapshot", "error", err)
		return
	}
	seen := len(snap.Turns)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.events:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "client too slow")
				return
			}
			switch {
			case ev.Kind == application.EventTurn && ev.Index < seen:
				continue
			case ev.Kind == application.EventReset:
				seen = 0
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				h.logger.Debug("writing event", "kind", ev.Kind, "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev application.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

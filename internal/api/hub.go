package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/DaanHessen/agency-gm/internal/store"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	dedupe     = 500 * time.Millisecond
)

// Change is the message sent to subscribers when a document changes.
type Change struct {
	Type string    `json:"type"`
	Doc  store.Doc `json:"doc"`
}

// Hub fans document changes out to websocket subscribers. A handler write and the
// watcher event it causes arrive close together and are announced once.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    map[store.Doc]time.Time
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now:     time.Now,
		clients: map[*websocket.Conn]struct{}{},
		last:    map[store.Doc]time.Time{},
	}
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Announce tells every subscriber that doc changed.
func (h *Hub) Announce(doc store.Doc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	if t, ok := h.last[doc]; ok && now.Sub(t) < dedupe {
		return
	}
	h.last[doc] = now
	msg := Change{Type: "changed", Doc: doc}
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteJSON(msg); err != nil {
			h.log.Debug("drop subscriber", zap.Error(err))
			_ = c.Close()
			delete(h.clients, c)
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	// Subscribers never send anything useful; reading only drives pongs and close.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		_ = c.Close()
	}
}

// Run pings subscribers until ctx is done, then closes them.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				_ = c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				_ = c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		case <-t.C:
			h.mu.Lock()
			for c := range h.clients {
				if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					_ = c.Close()
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

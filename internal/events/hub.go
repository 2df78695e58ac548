package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"nexus-support-service/internal/observability/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	clientSendSize = 64
)

// Message is the frame sent to WebSocket clients.
type Message struct {
	Kind  string          `json:"kind"`
	Key   string          `json:"key"`
	Event json.RawMessage `json:"event"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	// key filters messages to a single job when set.
	key string
}

// Hub pushes job events to connected WebSocket clients.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	log     zerolog.Logger
}

// NewHub creates a hub. checkOrigin decides which browser origins may
// connect; nil allows same-origin requests only.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[*client]struct{}),
		log:     logging.WithComponent("events-hub"),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishStatus broadcasts a job status event.
func (h *Hub) PublishStatus(_ context.Context, key string, event any) error {
	return h.broadcast("status", key, event)
}

// PublishTranscript broadcasts a finished transcript.
func (h *Hub) PublishTranscript(_ context.Context, key string, event any) error {
	return h.broadcast("transcript", key, event)
}

func (h *Hub) broadcast(kind, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Message{Kind: kind, Key: key, Event: payload})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.key != "" && c.key != key {
			continue
		}
		select {
		case c.send <- frame:
		default:
			// slow consumer
			h.log.Warn().Str("key", c.key).Msg("Dropping slow WebSocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

// ServeWS upgrades the request and streams events until the client goes
// away. A non-empty key limits the stream to that job.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, key string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize), key: key}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Str("key", key).Int("clients", total).Msg("WebSocket client connected")

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Int("clients", total).Msg("WebSocket client disconnected")
}

// readPump discards client input and handles pongs until the connection fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 90 * time.Second
	pingInterval = 45 * time.Second
	clientBuffer = 64
)

// Frame is one websocket push message.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub fans frames out to every connected browser. Slow clients drop frames
// rather than stall the broadcaster.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Broadcast encodes f once and queues it for every client.
func (h *Hub) Broadcast(f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		slog.Error("Failed to encode frame", slog.String("type", f.Type), slog.Any("error", err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- b:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		c.conn.Close()
		delete(h.clients, c)
	}
}

// ServeWS upgrades the request, registers the client and queues the frames
// built by greet. greet runs after registration and before any broadcast
// reaches the client, so no change falls between the greeting and the stream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, greet func() []Frame) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade error", slog.Any("error", err))
		return
	}
	defer conn.Close()

	cl := &client{conn: conn, out: make(chan []byte, clientBuffer), done: make(chan struct{})}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	if greet != nil {
		for _, f := range greet() {
			if b, err := json.Marshal(f); err == nil {
				select {
				case cl.out <- b:
				default:
				}
			}
		}
	}
	h.mu.Unlock()
	slog.Info("WebSocket client connected", slog.Int("clients", n))

	defer func() {
		cl.close()
		h.mu.Lock()
		delete(h.clients, cl)
		n := len(h.clients)
		h.mu.Unlock()
		slog.Info("WebSocket client disconnected", slog.Int("clients", n))
	}()

	go h.writePump(cl)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case b := <-cl.out:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				cl.conn.Close()
				return
			}
		case <-ping.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.conn.Close()
				return
			}
		case <-cl.done:
			return
		}
	}
}

package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/metrics"
	"github.com/AunuHost/GLX-Protection-Free-Version/pkg/clock"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the dashboard may be served from anywhere
		return true
	},
}

// Hub fans the live traffic series out to connected dashboard sockets.
// There is a single topic, so this is the simple variant of a client hub:
// register, unregister, broadcast to everyone.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool

	traffic  *metrics.Traffic
	clk      clock.Clock
	interval time.Duration
	done     chan struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(traffic *metrics.Traffic, clk clock.Clock, interval time.Duration) *Hub {
	return &Hub{
		clients:  make(map[*wsClient]bool),
		traffic:  traffic,
		clk:      clk,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Run pushes a fresh series to every client on each tick. Must be called in
// a goroutine.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) broadcast() {
	h.mu.Lock()
	if len(h.clients) == 0 {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	data, err := json.Marshal(h.traffic.Collect(h.clk.Now()))
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow client, drop it
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// serve upgrades the request and attaches the client to the hub. An initial
// series is sent immediately so the dashboard does not wait a full tick.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 8)}
	if data, err := json.Marshal(h.traffic.Collect(h.clk.Now())); err == nil {
		c.send <- data
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump()
	go c.readPump(h)
}

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump only exists to detect disconnects; clients send nothing we act on.
func (c *wsClient) readPump(h *Hub) {
	defer func() {
		h.drop(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

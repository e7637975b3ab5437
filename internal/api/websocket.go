package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/FocuswithJustin/JuniperSearch/core/format"
	"github.com/FocuswithJustin/JuniperSearch/core/search"
	"github.com/FocuswithJustin/JuniperSearch/internal/logging"
	"github.com/FocuswithJustin/JuniperSearch/internal/server"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096

	// messagesPerSecond limits client requests; bursts of twice that pass.
	messagesPerSecond = 5
)

// Event types sent to WebSocket clients.
const (
	EventBatch    = "batch"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is a message sent to WebSocket clients. Batches carry unranked
// matches as they are found; the complete event carries the ranked records.
type Event struct {
	Type      string          `json:"type"`
	JobID     string          `json:"job_id,omitempty"`
	Sequence  uint64          `json:"sequence,omitempty"`
	Kind      search.Kind     `json:"kind,omitempty"`
	Records   []format.Record `json:"records,omitempty"`
	Total     int             `json:"total,omitempty"`
	Unique    int             `json:"unique,omitempty"`
	Cancelled bool            `json:"cancelled,omitempty"`
	Code      string          `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// ClientMessage is a request from a WebSocket client. Type "search" starts a
// search, superseding any in flight; "cancel" stops the current one.
type ClientMessage struct {
	Type string `json:"type"`
	SearchRequest
}

// Client represents a WebSocket client connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter

	// session orders this client's searches; display holds the format
	// options of the newest one.
	session *search.Session
	display atomic.Pointer[format.Options]
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// enqueue sends an event to this client only, waiting for buffer space.
func (c *Client) enqueue(ev Event) {
	data, ok := encodeEvent(ev)
	if !ok {
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

// Hub maintains active WebSocket connections and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// Run handles client registration and broadcasting until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_connected", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_disconnected", n)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client channel full, disconnect
					client.close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(ev Event) {
	data, ok := encodeEvent(ev)
	if !ok {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logging.Warn("broadcast channel full, dropping message", "type", ev.Type)
	}
}

func encodeEvent(ev Event) ([]byte, bool) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("failed to marshal event", "type", ev.Type, "error", err)
		return nil, false
	}
	return data, true
}

// readPump reads client requests until the connection closes.
func (c *Client) readPump(ctx context.Context, s *Server) {
	defer func() {
		c.session.Cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket unexpected close", "error", err)
			}
			return
		}

		if !c.limiter.Allow() {
			rateLimited.WithLabelValues("websocket").Inc()
			c.enqueue(Event{Type: EventError, Code: "RATE_LIMIT_EXCEEDED", Message: "too many requests"})
			continue
		}

		switch msg.Type {
		case "search":
			go c.search(ctx, s, msg.SearchRequest)
		case "cancel":
			c.session.Cancel()
		default:
			c.enqueue(Event{Type: EventError, Code: "INVALID_MESSAGE", Message: "unknown message type " + msg.Type})
		}
	}
}

// search runs one request through the client's session. Outcomes superseded
// by a newer request are dropped.
func (c *Client) search(ctx context.Context, s *Server, req SearchRequest) {
	fail := func(err error) {
		_, apiErr := errorResponse(err)
		c.enqueue(Event{Type: EventError, Code: apiErr.Code, Message: apiErr.Message})
	}

	if err := s.checkQuery(&req); err != nil {
		fail(err)
		return
	}
	settings, err := s.settings(ctx, req)
	if err != nil {
		fail(err)
		return
	}
	display := format.OptionsFrom(settings)
	c.display.Store(&display)

	out, err := c.session.Submit(ctx, req.Query, settings)
	s.observe(ctx, req.Query, out, err)
	if err != nil {
		fail(err)
		return
	}
	if out.Stale {
		return
	}

	c.enqueue(Event{
		Type:      EventComplete,
		Sequence:  out.Sequence,
		Kind:      out.Kind,
		Records:   format.Records(out.Results, display),
		Total:     out.Total(),
		Unique:    out.Unique,
		Cancelled: out.Cancelled,
		Message:   format.Summary(out.Total(), out.Unique),
	})
}

// onBatch streams partial matches of the newest search only.
func (c *Client) onBatch(seq uint64, batch []search.MatchResult) {
	if seq != c.session.Latest() {
		return
	}
	var display format.Options
	if d := c.display.Load(); d != nil {
		display = *d
	}
	c.enqueue(Event{Type: EventBatch, Sequence: seq, Records: format.Records(batch, display)})
}

// writePump writes queued messages and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket upgrades the connection and starts the client pumps. Each
// client gets its own search session, so a new request cancels the previous
// one and stale results never reach the client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	cors := server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || cors.OriginAllowed(origin) {
				return true
			}
			logging.SecurityEvent("websocket_origin_rejected", "api", "origin", origin)
			return false
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:     s.hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), 2*messagesPerSecond),
	}
	client.session = search.NewSession(s.corpus, search.Options{
		Workers: s.cfg.Workers,
		OnBatch: client.onBatch,
	})

	select {
	case s.hub.register <- client:
	case <-s.hub.stop:
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go client.writePump()
	go func() {
		defer cancel()
		client.readPump(ctx, s)
	}()
}
